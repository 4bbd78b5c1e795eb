package error

import (
	"errors"
	"net/http"
	"strings"
)

// AppError carries a client-facing message together with the HTTP status it maps to.
type AppError struct {
	Message string
	Status  int
	Code    string
	Err     error
}

func NewAppError(message string, status int) *AppError {
	return &AppError{Message: message, Status: status}
}

// WrapAppError keeps the cause for logging while exposing only message to clients.
func WrapAppError(err error, message string, status int) *AppError {
	return &AppError{Message: message, Status: status, Err: err}
}

func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func (e *AppError) ErrCode() string {
	if e.Code != "" {
		return e.Code
	}
	text := http.StatusText(e.StatusCode())
	if text == "" {
		return "APP_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// As extracts a GenericError from an error chain.
func As(err error) (GenericError, bool) {
	if err == nil {
		return nil, false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	var validationErrs ValidationErrors
	if errors.As(err, &validationErrs) {
		return validationErrs, true
	}
	var generic GenericError
	if errors.As(err, &generic) {
		return generic, true
	}
	return nil, false
}
