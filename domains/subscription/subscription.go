package subscription

import (
	"context"
	"time"

	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

// ResourceType names a billable resource.
type ResourceType string

const (
	ResourceDevice ResourceType = "device"
	ResourcePanel  ResourceType = "panel"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

type Subscription struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	ResourceType  ResourceType `json:"resource_type"`
	ResourceID    string       `json:"resource_id"`
	Price         float64      `json:"price"`
	Status        Status       `json:"status"`
	PeriodStart   time.Time    `json:"period_start"`
	NextBillingAt time.Time    `json:"next_billing_at"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Charge is the outcome of reserving a resource slot.
type Charge struct {
	UserID        string       `json:"user_id"`
	ResourceType  ResourceType `json:"resource_type"`
	Free          bool         `json:"free"`
	Price         float64      `json:"price"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Reference     string       `json:"-"`
}

type RenewalResult struct {
	Renewed   int `json:"renewed"`
	Suspended int `json:"suspended"`
}

// Plan is the free quota and monthly price of one resource type.
type Plan struct {
	FreeQuota int
	Price     float64
}

// ResourceCounter returns how many resources of a type the user already owns.
type ResourceCounter func(ctx context.Context, userID string) (int64, error)

type ISubscriptionRepository interface {
	Create(ctx context.Context, s *Subscription) error
	ActiveFor(ctx context.Context, resourceType ResourceType, resourceID string) (*Subscription, error)
	SetStatus(ctx context.Context, id string, status Status) error
	Renew(ctx context.Context, id string, periodStart, next time.Time) error
	ListDue(ctx context.Context, now time.Time) ([]Subscription, error)
	ListByUser(ctx context.Context, userID string, page utils.PageRequest) ([]Subscription, int64, error)
}

type IResourceHook interface {
	Reserve(ctx context.Context, userID string, resourceType ResourceType) (Charge, error)
	Bind(ctx context.Context, charge Charge, resourceID string) error
	Release(ctx context.Context, charge Charge) error
	Cancel(ctx context.Context, resourceType ResourceType, resourceID string) error
	RenewDue(ctx context.Context, now time.Time) (RenewalResult, error)
	List(ctx context.Context, userID string, page utils.PageRequest) ([]Subscription, int64, error)
}
