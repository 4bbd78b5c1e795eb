package repository

import (
	"context"
	"encoding/json"

	domainAudit "github.com/mahalbangetid-beep/scb-sub003/domains/audit"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditGormRepository struct {
	db *gorm.DB
}

var _ domainAudit.IAuditRepository = (*AuditGormRepository)(nil)

func NewAuditGormRepository(db *gorm.DB) *AuditGormRepository {
	return &AuditGormRepository{db: db}
}

func (r *AuditGormRepository) Record(ctx context.Context, e *domainAudit.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utcNow()
	}
	if e.Severity == "" {
		e.Severity = domainAudit.SeverityInfo
	}
	m := auditLogModel{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Severity:   string(e.Severity),
		CreatedAt:  e.CreatedAt,
	}
	if len(e.Detail) > 0 {
		raw, err := json.Marshal(e.Detail)
		if err != nil {
			return err
		}
		m.Detail = nullString(string(raw))
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *AuditGormRepository) List(ctx context.Context, entityType, entityID string, page utils.PageRequest) ([]domainAudit.Entry, int64, error) {
	q := r.db.WithContext(ctx).Model(&auditLogModel{})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []auditLogModel
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domainAudit.Entry, len(models))
	for i, m := range models {
		out[i] = domainAudit.Entry{
			ID:         m.ID,
			ActorID:    m.ActorID,
			Action:     m.Action,
			EntityType: m.EntityType,
			EntityID:   m.EntityID,
			Severity:   domainAudit.Severity(m.Severity),
			CreatedAt:  m.CreatedAt,
		}
		if m.Detail.Valid {
			_ = json.Unmarshal([]byte(m.Detail.String), &out[i].Detail)
		}
	}
	return out, total, nil
}
