package error

import (
	"net/http"
	"strings"
)

type ValidationError string

func (err ValidationError) Error() string {
	return string(err)
}

func (err ValidationError) ErrCode() string {
	return "VALIDATION_ERROR"
}

func (err ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// FieldError is one entry of a ValidationErrors list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every failing field of a request before it is rejected.
type ValidationErrors []FieldError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

func (errs ValidationErrors) ErrCode() string {
	return "VALIDATION_ERROR"
}

func (errs ValidationErrors) StatusCode() int {
	return http.StatusBadRequest
}

// Details exposes the list for the response envelope.
func (errs ValidationErrors) Details() any {
	return []FieldError(errs)
}
