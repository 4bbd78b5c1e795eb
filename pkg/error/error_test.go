package error

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorDefaults(t *testing.T) {
	err := NewAppError("insufficient balance", http.StatusPaymentRequired)
	assert.Equal(t, "insufficient balance", err.Error())
	assert.Equal(t, http.StatusPaymentRequired, err.StatusCode())
	assert.Equal(t, "PAYMENT_REQUIRED", err.ErrCode())

	assert.Equal(t, "DEVICE_OFFLINE", NewAppError("offline", http.StatusConflict).WithCode("DEVICE_OFFLINE").ErrCode())
	assert.Equal(t, http.StatusInternalServerError, (&AppError{Message: "x"}).StatusCode())
}

func TestAsFindsWrappedErrors(t *testing.T) {
	cause := fmt.Errorf("db down")
	wrapped := fmt.Errorf("approve: %w", WrapAppError(cause, "credit applied but not confirmed", http.StatusInternalServerError))

	generic, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, generic.StatusCode())
	assert.ErrorIs(t, wrapped, cause)

	generic, ok = As(fmt.Errorf("lookup: %w", NotFoundError("device not found")))
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, generic.StatusCode())

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestValidationErrorsJoinFields(t *testing.T) {
	errs := ValidationErrors{
		{Field: "name", Message: "cannot be blank"},
		{Field: "phone", Message: "must be a valid phone number"},
	}
	assert.Equal(t, "name: cannot be blank; phone: must be a valid phone number", errs.Error())
	assert.Equal(t, http.StatusBadRequest, errs.StatusCode())
	assert.Len(t, errs.Details(), 2)
}
