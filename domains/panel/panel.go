package panel

import (
	"context"
	"regexp"
	"strings"
	"time"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

type Status string

const (
	StatusActive Status = "active"
	StatusError  Status = "error"
)

var ErrPanelNotFound = pkgError.NotFoundError("panel not found")

// Panel is an external SMM reseller platform speaking the panel API v2.
type Panel struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	APIKey        string     `json:"-"`
	Status        Status     `json:"status"`
	Balance       float64    `json:"balance"`
	Currency      string     `json:"currency"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type CreatePanelRequest struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

type Balance struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

type OrderStatus struct {
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	Charge     float64 `json:"charge"`
	StartCount int64   `json:"start_count"`
	Remains    int64   `json:"remains"`
	Currency   string  `json:"currency"`
	Error      string  `json:"error,omitempty"`
}

// Service is one entry of the panel catalogue.
type Service struct {
	ID       string  `json:"service"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Rate     float64 `json:"rate"`
	Min      int64   `json:"min"`
	Max      int64   `json:"max"`
	Refill   bool    `json:"refill"`
	Cancel   bool    `json:"cancel"`
}

// ActionResult is the per-order answer to refill and cancel requests.
type ActionResult struct {
	OrderID string `json:"order_id"`
	Ref     string `json:"ref,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Action string

const (
	ActionStatus Action = "status"
	ActionRefill Action = "refill"
	ActionCancel Action = "cancel"
)

// Command is a provider request typed by a customer in WhatsApp, e.g. "status 1234,5678".
type Command struct {
	Action   Action
	OrderIDs []string
}

const maxOrdersPerCommand = 100

var commandPattern = regexp.MustCompile(`(?i)^\s*/?(status|refill|cancel)\s+([0-9][0-9,\s]*)$`)

// ParseCommand recognises status/refill/cancel followed by one or more order ids.
func ParseCommand(text string) (Command, bool) {
	m := commandPattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	fields := strings.FieldsFunc(m[2], func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	seen := make(map[string]struct{}, len(fields))
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		ids = append(ids, f)
	}
	if len(ids) == 0 || len(ids) > maxOrdersPerCommand {
		return Command{}, false
	}
	return Command{Action: Action(strings.ToLower(m[1])), OrderIDs: ids}, true
}

// CommandResult is one line of the reply sent back to the customer.
type CommandResult struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
	Failed  bool   `json:"failed"`
}

// IPanelClient talks to one panel.
type IPanelClient interface {
	Balance(ctx context.Context) (Balance, error)
	OrderStatus(ctx context.Context, orderIDs []string) ([]OrderStatus, error)
	Refill(ctx context.Context, orderIDs []string) ([]ActionResult, error)
	Cancel(ctx context.Context, orderIDs []string) ([]ActionResult, error)
	Services(ctx context.Context) ([]Service, error)
}

// ClientFactory builds a client for a panel URL and plain API key.
type ClientFactory func(url, apiKey string) IPanelClient

type IPanelRepository interface {
	Create(ctx context.Context, p *Panel) error
	GetByID(ctx context.Context, id string) (*Panel, error)
	GetForUser(ctx context.Context, userID, id string) (*Panel, error)
	List(ctx context.Context, userID string, page utils.PageRequest) ([]Panel, int64, error)
	ListAll(ctx context.Context) ([]Panel, error)
	Update(ctx context.Context, p *Panel) error
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type IPanelUsecase interface {
	Create(ctx context.Context, userID string, req CreatePanelRequest) (Panel, error)
	List(ctx context.Context, userID string, page utils.PageRequest) ([]Panel, int64, error)
	Get(ctx context.Context, userID, id string) (Panel, error)
	Delete(ctx context.Context, userID, id string) error
	Check(ctx context.Context, userID, id string) (Panel, error)
	Services(ctx context.Context, userID, id string) ([]Service, error)
	Execute(ctx context.Context, panelID string, cmd Command) ([]CommandResult, error)
}
