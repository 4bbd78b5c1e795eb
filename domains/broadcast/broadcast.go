package broadcast

import (
	"context"
	"time"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
)

var (
	ErrBroadcastNotFound = pkgError.NotFoundError("broadcast not found")
	ErrNotCancellable    = pkgError.ConflictError("only scheduled or running broadcasts can be cancelled")
	ErrNoValidRecipients = pkgError.ValidationError("recipients: no valid phone numbers")
)

type Broadcast struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	DeviceID        string     `json:"device_id"`
	Name            string     `json:"name"`
	Message         string     `json:"message"`
	Status          Status     `json:"status"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	TotalRecipients int        `json:"total_recipients"`
	SentCount       int        `json:"sent_count"`
	FailedCount     int        `json:"failed_count"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Recipient struct {
	ID          string          `json:"id"`
	BroadcastID string          `json:"broadcast_id"`
	Phone       string          `json:"phone"`
	Status      RecipientStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	MessageID   string          `json:"message_id,omitempty"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
}

type CreateBroadcastRequest struct {
	DeviceID    string     `json:"device_id"`
	Name        string     `json:"name"`
	Message     string     `json:"message"`
	Recipients  []string   `json:"recipients"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type CreateBroadcastResponse struct {
	Broadcast         Broadcast `json:"broadcast"`
	InvalidRecipients []string  `json:"invalid_recipients,omitempty"`
}

// Progress is published to the owner while a broadcast is running.
type Progress struct {
	BroadcastID string `json:"broadcast_id"`
	Status      Status `json:"status"`
	Total       int    `json:"total"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
	Reason      string `json:"reason,omitempty"`
}

type IBroadcastRepository interface {
	Create(ctx context.Context, b *Broadcast, recipients []Recipient) error
	GetByID(ctx context.Context, id string) (*Broadcast, error)
	GetForUser(ctx context.Context, userID, id string) (*Broadcast, error)
	List(ctx context.Context, userID string, status Status, page utils.PageRequest) ([]Broadcast, int64, error)
	ListRecipients(ctx context.Context, broadcastID string, page utils.PageRequest) ([]Recipient, int64, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]Broadcast, error)
	// Claim moves a scheduled broadcast to processing; false means another tick already owns it.
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
	Requeue(ctx context.Context, id string) error
	Finish(ctx context.Context, id string, status Status, reason string, at time.Time) error
	Cancel(ctx context.Context, id string) (bool, error)
	CurrentStatus(ctx context.Context, id string) (Status, error)
	PendingRecipients(ctx context.Context, broadcastID string) ([]Recipient, error)
	MarkRecipient(ctx context.Context, r *Recipient) error
	ResetStuck(ctx context.Context) (int64, error)
}

type IBroadcastUsecase interface {
	Create(ctx context.Context, userID string, req CreateBroadcastRequest) (CreateBroadcastResponse, error)
	List(ctx context.Context, userID string, status Status, page utils.PageRequest) ([]Broadcast, int64, error)
	Get(ctx context.Context, userID, id string) (Broadcast, error)
	Recipients(ctx context.Context, userID, id string, page utils.PageRequest) ([]Recipient, int64, error)
	Cancel(ctx context.Context, userID, id string) (Broadcast, error)
}
