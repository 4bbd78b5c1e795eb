package sessions

import (
	"context"
	"time"

	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
)

// EventKind classifies what a protocol connection reports to the manager.
type EventKind string

const (
	EventQR           EventKind = "qr"
	EventQRTimeout    EventKind = "qr_timeout"
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventLoggedOut    EventKind = "logged_out"
	EventMessage      EventKind = "message"
)

type Event struct {
	Kind EventKind
	// QRCode is the raw pairing code, QRImage its PNG data URL.
	QRCode  string
	QRImage string
	JID     string
	Phone   string
	Reason  string
	Message *InboundMessage
}

type InboundMessage struct {
	DeviceID  string    `json:"device_id"`
	UserID    string    `json:"-"`
	MessageID string    `json:"message_id"`
	ChatJID   string    `json:"chat_jid"`
	From      string    `json:"from"`
	PushName  string    `json:"push_name,omitempty"`
	Text      string    `json:"text"`
	IsGroup   bool      `json:"is_group"`
	Timestamp time.Time `json:"timestamp"`
}

// Connection is one live protocol connection of a device.
type Connection interface {
	Connect(ctx context.Context) error
	Disconnect()
	Logout(ctx context.Context) error
	IsConnected() bool
	IsLoggedIn() bool
	SendText(ctx context.Context, to, text string) (string, error)
	Close() error
}

// Factory opens connections and owns the credential store of each device.
type Factory interface {
	Open(ctx context.Context, deviceID string, handler func(Event)) (Connection, error)
	HasSession(deviceID string) bool
	Purge(deviceID string) error
}

// DeviceStore persists session transitions and traffic counters.
type DeviceStore interface {
	UpdateSessionState(ctx context.Context, id string, state domainDevice.SessionState) error
	ListRestorable(ctx context.Context) ([]domainDevice.Device, error)
	IncrementCounters(ctx context.Context, id string, sent, received int64) error
}

// InboundHandler receives every inbound message after it has been queued.
type InboundHandler func(ctx context.Context, msg InboundMessage) error
