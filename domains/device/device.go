package device

import (
	"context"
	"time"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

// Status is the connection state of a device session.
type Status string

const (
	StatusPending      Status = "pending"
	StatusQR           Status = "qr"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

var ErrDeviceNotFound = pkgError.NotFoundError("device not found")

type Device struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone,omitempty"`
	JID              string     `json:"jid,omitempty"`
	Status           Status     `json:"status"`
	PanelID          string     `json:"panel_id,omitempty"`
	BotEnabled       bool       `json:"bot_enabled"`
	LastConnectedAt  *time.Time `json:"last_connected_at,omitempty"`
	DisconnectedAt   *time.Time `json:"disconnected_at,omitempty"`
	MessagesSent     int64      `json:"messages_sent"`
	MessagesReceived int64      `json:"messages_received"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// OfflineSince returns how long the device has been unreachable at now.
// Devices that never connected count from their creation time.
func (d Device) OfflineSince(now time.Time) time.Duration {
	switch {
	case d.Status == StatusConnected:
		return 0
	case d.DisconnectedAt != nil:
		return now.Sub(*d.DisconnectedAt)
	case d.LastConnectedAt != nil:
		return now.Sub(*d.LastConnectedAt)
	default:
		return now.Sub(d.CreatedAt)
	}
}

// SessionInfo is the live state kept by the session manager.
type SessionInfo struct {
	DeviceID   string    `json:"device_id"`
	UserID     string    `json:"user_id,omitempty"`
	Status     Status    `json:"status"`
	QRCode     string    `json:"qr_code,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	QRAttempts int       `json:"qr_attempts"`
	Reason     string    `json:"reason,omitempty"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionState is what the session manager persists on every transition.
type SessionState struct {
	Status Status
	JID    string
	Phone  string
	At     time.Time
}

type DeviceDetail struct {
	Device
	Session SessionInfo `json:"session"`
}

type CreateDeviceRequest struct {
	Name       string `json:"name"`
	PanelID    string `json:"panel_id"`
	BotEnabled *bool  `json:"bot_enabled"`
}

type UpdateDeviceRequest struct {
	Name       *string `json:"name"`
	PanelID    *string `json:"panel_id"`
	BotEnabled *bool   `json:"bot_enabled"`
}

type SendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type SendMessageResponse struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
}

type IDeviceRepository interface {
	Create(ctx context.Context, d *Device) error
	GetByID(ctx context.Context, id string) (*Device, error)
	GetForUser(ctx context.Context, userID, id string) (*Device, error)
	List(ctx context.Context, userID string, page utils.PageRequest) ([]Device, int64, error)
	Update(ctx context.Context, d *Device) error
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID string) (int64, error)
	UpdateSessionState(ctx context.Context, id string, state SessionState) error
	ListRestorable(ctx context.Context) ([]Device, error)
	IncrementCounters(ctx context.Context, id string, sent, received int64) error
}

type IDeviceUsecase interface {
	Create(ctx context.Context, userID string, req CreateDeviceRequest) (Device, error)
	List(ctx context.Context, userID string, page utils.PageRequest) ([]Device, int64, error)
	Get(ctx context.Context, userID, id string) (DeviceDetail, error)
	Update(ctx context.Context, userID, id string, req UpdateDeviceRequest) (Device, error)
	Delete(ctx context.Context, userID, id string) error
	Connect(ctx context.Context, userID, id string) (SessionInfo, error)
	Restart(ctx context.Context, userID, id string) (SessionInfo, error)
	Status(ctx context.Context, userID, id string) (SessionInfo, error)
	Logout(ctx context.Context, userID, id string) error
	SendMessage(ctx context.Context, userID, id string, req SendMessageRequest) (SendMessageResponse, error)
}
