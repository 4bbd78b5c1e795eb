package audit

import (
	"context"
	"time"

	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Entry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Severity   Severity       `json:"severity"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type IAuditRepository interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, entityType, entityID string, page utils.PageRequest) ([]Entry, int64, error)
}

// FileSink receives audit lines that must survive a database outage.
type FileSink interface {
	Write(e Entry) error
}
