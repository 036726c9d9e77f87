package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FieldError points a decoding failure at the offending JSON field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatBindingError describes why a JSON body could not be decoded into the
// request struct. It returns nil for errors that carry no field information.
func FormatBindingError(err error) []FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("Expected %s, got %s", typeErr.Type, typeErr.Value),
		}}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []FieldError{{
			Field:   "body",
			Message: fmt.Sprintf("Malformed JSON at offset %d", syntaxErr.Offset),
		}}
	}

	return nil
}
