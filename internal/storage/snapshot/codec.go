package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when the dump file does not exist.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrCorrupt is returned when the dump file is not a JSON object of
	// string values.
	ErrCorrupt = errors.New("snapshot: corrupt dump")

	// ErrInvalidText is returned by Encode when a key or value is not valid
	// UTF-8. JSON would replace the bad bytes and the dump would not load
	// back to the same entries.
	ErrInvalidText = errors.New("snapshot: entry is not valid UTF-8")
)

// Encode writes entries as a single JSON object.
//
// HTML escaping is disabled so that values containing <, > or & are stored
// verbatim. Non-ASCII text is written as UTF-8. Entries that are not valid
// UTF-8 fail with ErrInvalidText before anything is written.
func Encode(w io.Writer, entries map[string]string) error {
	if entries == nil {
		entries = map[string]string{}
	}
	for k, v := range entries {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return fmt.Errorf("%w: key %q", ErrInvalidText, k)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// Decode reads a JSON object of string values.
//
// A JSON null decodes to an empty mapping. Anything else that is not an
// object of strings, or trailing data after the object, yields ErrCorrupt.
func Decode(r io.Reader) (map[string]string, error) {
	dec := json.NewDecoder(r)

	var entries map[string]string
	if err := dec.Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrCorrupt)
		}
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrCorrupt)
	}

	if entries == nil {
		entries = map[string]string{}
	}
	return entries, nil
}

// Marshal is Encode into a byte slice.
func Marshal(entries map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
