package botmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCountsByStage(t *testing.T) {
	m := New(10, 0)
	m.Record(Event{Stage: StageInbound, Status: StatusOK})
	m.Record(Event{Stage: StageCommand, Status: StatusOK})
	m.Record(Event{Stage: StageAutoRep, Status: StatusSkipped})
	m.Record(Event{Stage: StageOutbound, Status: StatusError, Error: "offline"})

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.TotalInbound)
	assert.Equal(t, int64(1), stats.TotalCommands)
	assert.Equal(t, int64(0), stats.TotalAutoReplies)
	assert.Equal(t, int64(0), stats.TotalOutbound)
	assert.Equal(t, int64(1), stats.TotalErrors)
	require.Len(t, stats.RecentEvents, 4)
	assert.Equal(t, StageInbound, stats.RecentEvents[0].Stage)
}

func TestMonitorRingBufferKeepsNewest(t *testing.T) {
	m := New(3, 0)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		m.Record(Event{DeviceID: id, Stage: StageInbound, Status: StatusOK})
	}

	stats := m.GetStats()
	require.Len(t, stats.RecentEvents, 3)
	assert.Equal(t, "c", stats.RecentEvents[0].DeviceID)
	assert.Equal(t, "e", stats.RecentEvents[2].DeviceID)
	assert.Equal(t, int64(5), stats.TotalInbound)
}

func TestMonitorHidesExpiredEvents(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := New(5, time.Minute)
	m.now = func() time.Time { return now }
	m.Record(Event{DeviceID: "old", Stage: StageInbound, Status: StatusOK})

	now = now.Add(2 * time.Minute)
	m.Record(Event{DeviceID: "new", Stage: StageInbound, Status: StatusOK})

	stats := m.GetStats()
	require.Len(t, stats.RecentEvents, 1)
	assert.Equal(t, "new", stats.RecentEvents[0].DeviceID)
}

func TestNilMonitorRecordIsNoop(t *testing.T) {
	var m *Monitor
	assert.NotPanics(t, func() { m.Record(Event{Stage: StageInbound}) })
}
