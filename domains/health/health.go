package health

import (
	"context"
	"time"
)

type EntityType string

const (
	EntityPanel  EntityType = "panel"
	EntityDevice EntityType = "device"
)

type Status string

const (
	StatusOk      Status = "OK"
	StatusError   Status = "ERROR"
	StatusUnknown Status = "UNKNOWN"
)

type HealthRecord struct {
	ID          string     `json:"id"`
	EntityType  EntityType `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	Status      Status     `json:"status"`
	LastMessage string     `json:"last_message"`
	LastChecked time.Time  `json:"last_checked"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
}

type IHealthRepository interface {
	Upsert(ctx context.Context, r *HealthRecord) error
	Get(ctx context.Context, entityType EntityType, entityID string) (*HealthRecord, error)
	List(ctx context.Context) ([]HealthRecord, error)
	Delete(ctx context.Context, entityType EntityType, entityID string) error
}

type IHealthUsecase interface {
	CheckPanel(ctx context.Context, id string) (HealthRecord, error)
	CheckDevice(ctx context.Context, id string) (HealthRecord, error)
	CheckAll(ctx context.Context) ([]HealthRecord, error)
	GetStatus(ctx context.Context) ([]HealthRecord, error)
	ReportFailure(ctx context.Context, entityType EntityType, entityID, message string)
	ReportSuccess(ctx context.Context, entityType EntityType, entityID string)
}
