package botmonitor

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	StageInbound  = "inbound"
	StageCommand  = "panel_command"
	StageAutoRep  = "auto_reply"
	StageOutbound = "outbound"

	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	DeviceID   string    `json:"device_id"`
	ChatJID    string    `json:"chat_jid"`
	Stage      string    `json:"stage"`  // inbound | panel_command | auto_reply | outbound
	Status     string    `json:"status"` // ok | error | skipped
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

type Stats struct {
	TotalInbound     int64   `json:"total_inbound"`
	TotalCommands    int64   `json:"total_panel_commands"`
	TotalAutoReplies int64   `json:"total_auto_replies"`
	TotalOutbound    int64   `json:"total_outbound"`
	TotalErrors      int64   `json:"total_errors"`
	RecentEvents     []Event `json:"recent_events"`
}

// Monitor keeps counters and a ring buffer of the latest bot events.
type Monitor struct {
	ttl time.Duration
	now func() time.Time

	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int

	totalInbound     atomic.Int64
	totalCommands    atomic.Int64
	totalAutoReplies atomic.Int64
	totalOutbound    atomic.Int64
	totalErrors      atomic.Int64
}

// New keeps the last size events; events older than ttl are hidden from
// GetStats when ttl > 0.
func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{events: make([]Event, size), ttl: ttl, now: time.Now}
}

func (m *Monitor) Record(e Event) {
	if m == nil {
		return
	}
	e.Timestamp = m.now().UTC()

	switch e.Stage {
	case StageInbound:
		m.totalInbound.Add(1)
	case StageCommand:
		if e.Status == StatusOK {
			m.totalCommands.Add(1)
		}
	case StageAutoRep:
		if e.Status == StatusOK {
			m.totalAutoReplies.Add(1)
		}
	case StageOutbound:
		if e.Status == StatusOK {
			m.totalOutbound.Add(1)
		}
	}
	if e.Status == StatusError {
		m.totalErrors.Add(1)
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()
}

// GetStats returns the counters and the buffered events, oldest first.
func (m *Monitor) GetStats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	res := make([]Event, 0, m.count)
	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}
	start := (m.idx - m.count) % len(m.events)
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalInbound:     m.totalInbound.Load(),
		TotalCommands:    m.totalCommands.Load(),
		TotalAutoReplies: m.totalAutoReplies.Load(),
		TotalOutbound:    m.totalOutbound.Load(),
		TotalErrors:      m.totalErrors.Load(),
		RecentEvents:     res,
	}
}
