package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageRequestClamps(t *testing.T) {
	p := NewPageRequest(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageLimit, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = NewPageRequest(3, 500)
	assert.Equal(t, MaxPageLimit, p.Limit)
	assert.Equal(t, 200, p.Offset())
}

func TestPageMeta(t *testing.T) {
	meta := NewPageRequest(2, 20).Meta(42)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, int64(42), meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	assert.Equal(t, 0, NewPageRequest(1, 20).Meta(0).TotalPages)
}

func TestEnvelopeHelpers(t *testing.T) {
	ok := Success(map[string]string{"id": "1"})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)

	fail := Failure("NOT_FOUND_ERROR", "device not found", nil)
	assert.False(t, fail.Success)
	assert.Equal(t, "NOT_FOUND_ERROR", fail.Error.Code)
	assert.Nil(t, fail.Data)
}
