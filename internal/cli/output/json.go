package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter writes data as indented JSON.
type JSONFormatter struct{}

// Format writes data followed by a newline. Stored values are printed
// as-is, without HTML escaping. A *Table becomes an array of header-keyed
// objects, matching the YAML output.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		data = t.Records()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
