package autoreply

import (
	"context"
	"time"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
	MatchRegex      MatchType = "regex"
)

var MatchTypes = []interface{}{MatchExact, MatchContains, MatchStartsWith, MatchRegex}

var ErrRuleNotFound = pkgError.NotFoundError("auto-reply rule not found")

// Rule answers inbound messages whose text matches Keyword. An empty DeviceID
// applies the rule to every device of the owner.
type Rule struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	DeviceID      string    `json:"device_id,omitempty"`
	Keyword       string    `json:"keyword"`
	MatchType     MatchType `json:"match_type"`
	Response      string    `json:"response"`
	Priority      int       `json:"priority"`
	CaseSensitive bool      `json:"case_sensitive"`
	IsActive      bool      `json:"is_active"`
	TriggerCount  int64     `json:"trigger_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type RuleRequest struct {
	DeviceID      string    `json:"device_id"`
	Keyword       string    `json:"keyword"`
	MatchType     MatchType `json:"match_type"`
	Response      string    `json:"response"`
	Priority      int       `json:"priority"`
	CaseSensitive bool      `json:"case_sensitive"`
	IsActive      *bool     `json:"is_active"`
}

type IRuleRepository interface {
	Create(ctx context.Context, r *Rule) error
	GetForUser(ctx context.Context, userID, id string) (*Rule, error)
	List(ctx context.Context, userID, deviceID string, page utils.PageRequest) ([]Rule, int64, error)
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, id string) error
	// ActiveForDevice returns active rules of the device plus user-wide rules, highest priority first.
	ActiveForDevice(ctx context.Context, userID, deviceID string) ([]Rule, error)
	IncrementTrigger(ctx context.Context, id string) error
}

type IAutoReplyUsecase interface {
	Create(ctx context.Context, userID string, req RuleRequest) (Rule, error)
	List(ctx context.Context, userID, deviceID string, page utils.PageRequest) ([]Rule, int64, error)
	Get(ctx context.Context, userID, id string) (Rule, error)
	Update(ctx context.Context, userID, id string, req RuleRequest) (Rule, error)
	Delete(ctx context.Context, userID, id string) error
	Match(ctx context.Context, userID, deviceID, text string) (*Rule, error)
}
