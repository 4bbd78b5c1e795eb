package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand("status 12345")
	assert.True(t, ok)
	assert.Equal(t, ActionStatus, cmd.Action)
	assert.Equal(t, []string{"12345"}, cmd.OrderIDs)

	cmd, ok = ParseCommand("  REFILL 1, 2,2 3 ")
	assert.True(t, ok)
	assert.Equal(t, ActionRefill, cmd.Action)
	assert.Equal(t, []string{"1", "2", "3"}, cmd.OrderIDs)

	cmd, ok = ParseCommand("/cancel 77")
	assert.True(t, ok)
	assert.Equal(t, ActionCancel, cmd.Action)

	for _, text := range []string{"hello", "status", "status abc", "refund 12", "status 12 please"} {
		_, ok := ParseCommand(text)
		assert.False(t, ok, text)
	}
}
