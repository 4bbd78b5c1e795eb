package repository

import (
	"context"
	"errors"

	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HealthGormRepository struct {
	db *gorm.DB
}

var _ domainHealth.IHealthRepository = (*HealthGormRepository)(nil)

func NewHealthGormRepository(db *gorm.DB) *HealthGormRepository {
	return &HealthGormRepository{db: db}
}

// Upsert keeps one row per entity. last_success only moves forward on OK.
func (r *HealthGormRepository) Upsert(ctx context.Context, rec *domainHealth.HealthRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.LastChecked.IsZero() {
		rec.LastChecked = utcNow()
	}
	if rec.Status == domainHealth.StatusOk {
		at := rec.LastChecked
		rec.LastSuccess = &at
	}
	m := healthCheckModel{
		ID:          rec.ID,
		EntityType:  string(rec.EntityType),
		EntityID:    rec.EntityID,
		Status:      string(rec.Status),
		LastMessage: rec.LastMessage,
		LastChecked: rec.LastChecked,
		LastSuccess: rec.LastSuccess,
	}
	assignments := clause.Assignments(map[string]any{
		"status":       m.Status,
		"last_message": m.LastMessage,
		"last_checked": m.LastChecked,
	})
	if rec.Status == domainHealth.StatusOk {
		assignments = append(assignments, clause.Assignment{Column: clause.Column{Name: "last_success"}, Value: m.LastChecked})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: assignments,
	}).Create(&m).Error
}

func (r *HealthGormRepository) Get(ctx context.Context, entityType domainHealth.EntityType, entityID string) (*domainHealth.HealthRecord, error) {
	var m healthCheckModel
	err := r.db.WithContext(ctx).Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domainHealth.HealthRecord{EntityType: entityType, EntityID: entityID, Status: domainHealth.StatusUnknown}, nil
		}
		return nil, err
	}
	rec := fromHealthModel(m)
	return &rec, nil
}

func (r *HealthGormRepository) List(ctx context.Context) ([]domainHealth.HealthRecord, error) {
	var models []healthCheckModel
	if err := r.db.WithContext(ctx).Order("entity_type ASC, last_checked DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domainHealth.HealthRecord, len(models))
	for i, m := range models {
		out[i] = fromHealthModel(m)
	}
	return out, nil
}

func (r *HealthGormRepository) Delete(ctx context.Context, entityType domainHealth.EntityType, entityID string) error {
	return r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).
		Delete(&healthCheckModel{}).Error
}

func fromHealthModel(m healthCheckModel) domainHealth.HealthRecord {
	return domainHealth.HealthRecord{
		ID:          m.ID,
		EntityType:  domainHealth.EntityType(m.EntityType),
		EntityID:    m.EntityID,
		Status:      domainHealth.Status(m.Status),
		LastMessage: m.LastMessage,
		LastChecked: m.LastChecked,
		LastSuccess: m.LastSuccess,
	}
}
