package domain

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DomainError is an error with a stable, structured code.
//
// Codes have the form SKV-<AREA>-<NNNN>. The first three digits are the
// HTTP status the transports report for it; see StatusCode.
//
// The package-level sentinels are shared. WithDetails and WithCause return
// copies, so callers never modify a sentinel.
type DomainError struct {
	Code    string
	Message string
	Details string // optional, appended to Message in Error
	Cause   error
}

// NewDomainError creates a DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString("[" + e.Code + "] " + e.Message)
	if e.Details != "" {
		b.WriteString(": " + e.Details)
	}
	return b.String()
}

// Unwrap returns the cause, so errors.Is and errors.As reach it.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code, which lets a detailed copy
// match its sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// WithDetails returns a copy of e carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of e wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// StatusCode returns the HTTP status encoded in the code, or 500 when the
// code does not carry one.
func (e *DomainError) StatusCode() int {
	return StatusForCode(e.Code)
}

// StatusForCode extracts the HTTP status from an SKV code: SKV-KEY-4040
// yields 404. Codes that do not end in four digits starting with a 4xx or
// 5xx status yield 500.
func StatusForCode(code string) int {
	i := strings.LastIndexByte(code, '-')
	digits := code[i+1:]
	if i < 0 || len(digits) != 4 {
		return 500
	}
	n, err := strconv.Atoi(digits[:3])
	if err != nil || n < 400 || n > 599 {
		return 500
	}
	return n
}

// CodeOf returns the code of the first DomainError in err's chain, or ""
// when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Argument errors.
var (
	// ErrInvalidRequest indicates a body that could not be parsed or is empty
	// where content is required.
	ErrInvalidRequest = NewDomainError("SKV-ARG-4000", "invalid request")
	ErrInvalidKey     = NewDomainError("SKV-ARG-4001", "invalid key")
	ErrInvalidPath    = NewDomainError("SKV-ARG-4002", "invalid path")
	ErrBodyTooLarge   = NewDomainError("SKV-ARG-4130", "request body too large")
)

// Key errors. The plural forms are returned by bulk operations when no key
// could be applied.
var (
	ErrKeyNotFound  = NewDomainError("SKV-KEY-4040", "key not found")
	ErrKeysNotFound = NewDomainError("SKV-KEY-4041", "no keys found")
	ErrKeyExists    = NewDomainError("SKV-KEY-4090", "key already exists")
	ErrKeysExist    = NewDomainError("SKV-KEY-4091", "all keys already exist")
)

// Dump errors.
var (
	ErrDumpNotFound = NewDomainError("SKV-DUMP-4042", "dump file not found")
	// ErrDumpCorrupt indicates the dump file is not a JSON object of strings.
	ErrDumpCorrupt = NewDomainError("SKV-DUMP-4220", "dump file is corrupt")
)

// System errors.
var (
	ErrRateLimited = NewDomainError("SKV-SYS-4290", "too many requests")
	ErrInternal    = NewDomainError("SKV-SYS-5000", "internal server error")
)

// ValidateKey rejects keys that cannot be stored: the empty key, and keys
// that are not valid UTF-8, which a JSON dump could not reproduce.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey.WithDetails("key must not be empty")
	}
	if !utf8.ValidString(key) {
		return ErrInvalidKey.WithDetails("key must be valid UTF-8")
	}
	return nil
}

// ValidateValue rejects values that are not valid UTF-8.
func ValidateValue(value string) error {
	if !utf8.ValidString(value) {
		return ErrInvalidRequest.WithDetails("value must be valid UTF-8")
	}
	return nil
}
