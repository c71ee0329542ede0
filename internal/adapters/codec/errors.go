package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/ratebook/internal/domain/model"
)

// Sentinel kinds for codec errors.
var (
	ErrSchema = errors.New("document does not match schema")
	ErrDecode = errors.New("document cannot be decoded")
)

// Violation is one problem found while validating a document.
type Violation struct {
	// Path is a JSON pointer to the offending value ("/" for the root).
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// SchemaError lists every violation found in a document.
type SchemaError struct {
	Violations []Violation
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %d violation(s): %s", ErrSchema, len(e.Violations), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrSchema.
func (e *SchemaError) Unwrap() error { return ErrSchema }

// DecodeError reports a schema-valid document that cannot be applied,
// such as one rating the same (owner, item) pair twice.
type DecodeError struct {
	Duplicates []model.Key
	Reason     string
}

func (e *DecodeError) Error() string {
	if len(e.Duplicates) == 0 {
		return fmt.Sprintf("%s: %s", ErrDecode, e.Reason)
	}
	keys := make([]string, len(e.Duplicates))
	for i, k := range e.Duplicates {
		keys[i] = k.String()
	}
	return fmt.Sprintf("%s: duplicate ratings for %s", ErrDecode, strings.Join(keys, ", "))
}

// Unwrap lets errors.Is match ErrDecode.
func (e *DecodeError) Unwrap() error { return ErrDecode }
