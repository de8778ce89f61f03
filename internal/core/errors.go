package core

// errors.go defines the error kinds the rest of the system branches on.
//
//   - ConfigurationError: missing credentials or identifiers; fatal at startup.
//   - SchemaError: required ledger columns (or both master key columns)
//     could not be resolved; fatal for the operation that needed them.
//   - AccessError: a store read or write failed.
//   - ValidationError: one conversation field was malformed; always
//     recovered by holding the state.
//
// Callers match with errors.As. Ambiguity is not an error.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySheet is wrapped by AccessError when a sheet has no header row.
var ErrEmptySheet = errors.New("sheet is empty or has no header")

// ErrBusy is returned when every store slot stays occupied for the whole
// wait period. Callers should retry after a short delay.
var ErrBusy = errors.New("too many concurrent store calls, please try again later")

// ConfigurationError reports a missing or invalid startup setting.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Message)
}

// SchemaError lists the canonical fields that no header cell resolved to.
type SchemaError struct {
	Sheet   string
	Missing []Field
	Header  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("header %s not found for: %s", e.Sheet, e.MissingNames())
}

// MissingNames joins the missing field names, e.g. "userid, tujuan".
func (e *SchemaError) MissingNames() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// AccessError wraps a failed read or write against a store.
type AccessError struct {
	Op    string // "read" or "append"
	Sheet string
	Err   error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Sheet, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// NewAccessError wraps err unless it already is an AccessError.
func NewAccessError(op, sheet string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AccessError
	if errors.As(err, &ae) {
		return err
	}
	return &AccessError{Op: op, Sheet: sheet, Err: err}
}

// ValidationError represents a rejected conversation field.
type ValidationError struct {
	Field   Field  // Field being collected
	Value   string // The rejected input
	Message string // Human-readable reason
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
