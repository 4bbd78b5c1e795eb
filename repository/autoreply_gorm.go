package repository

import (
	"context"
	"errors"

	domainAutoReply "github.com/mahalbangetid-beep/scb-sub003/domains/autoreply"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutoReplyGormRepository struct {
	db *gorm.DB
}

var _ domainAutoReply.IRuleRepository = (*AutoReplyGormRepository)(nil)

func NewAutoReplyGormRepository(db *gorm.DB) *AutoReplyGormRepository {
	return &AutoReplyGormRepository{db: db}
}

func (r *AutoReplyGormRepository) Create(ctx context.Context, rule *domainAutoReply.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := utcNow()
	rule.CreatedAt, rule.UpdatedAt = now, now
	m := toRuleModel(*rule)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *AutoReplyGormRepository) GetForUser(ctx context.Context, userID, id string) (*domainAutoReply.Rule, error) {
	var m autoReplyRuleModel
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainAutoReply.ErrRuleNotFound
		}
		return nil, err
	}
	rule := fromRuleModel(m)
	return &rule, nil
}

func (r *AutoReplyGormRepository) List(ctx context.Context, userID, deviceID string, page utils.PageRequest) ([]domainAutoReply.Rule, int64, error) {
	q := r.db.WithContext(ctx).Model(&autoReplyRuleModel{}).Where("user_id = ?", userID)
	if deviceID != "" {
		q = q.Where("device_id = ?", deviceID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []autoReplyRuleModel
	if err := q.Order("priority DESC, created_at ASC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return fromRuleModels(models), total, nil
}

func (r *AutoReplyGormRepository) Update(ctx context.Context, rule *domainAutoReply.Rule) error {
	rule.UpdatedAt = utcNow()
	res := r.db.WithContext(ctx).Model(&autoReplyRuleModel{}).Where("id = ?", rule.ID).Updates(map[string]any{
		"device_id":      rule.DeviceID,
		"keyword":        rule.Keyword,
		"match_type":     string(rule.MatchType),
		"response":       rule.Response,
		"priority":       rule.Priority,
		"case_sensitive": rule.CaseSensitive,
		"is_active":      rule.IsActive,
		"updated_at":     rule.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainAutoReply.ErrRuleNotFound
	}
	return nil
}

func (r *AutoReplyGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&autoReplyRuleModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainAutoReply.ErrRuleNotFound
	}
	return nil
}

func (r *AutoReplyGormRepository) ActiveForDevice(ctx context.Context, userID, deviceID string) ([]domainAutoReply.Rule, error) {
	var models []autoReplyRuleModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND (device_id = ? OR device_id = '')", userID, true, deviceID).
		Order("priority DESC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromRuleModels(models), nil
}

func (r *AutoReplyGormRepository) IncrementTrigger(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&autoReplyRuleModel{}).Where("id = ?", id).
		UpdateColumn("trigger_count", gorm.Expr("trigger_count + 1")).Error
}

func toRuleModel(r domainAutoReply.Rule) autoReplyRuleModel {
	return autoReplyRuleModel{
		ID:            r.ID,
		UserID:        r.UserID,
		DeviceID:      r.DeviceID,
		Keyword:       r.Keyword,
		MatchType:     string(r.MatchType),
		Response:      r.Response,
		Priority:      r.Priority,
		CaseSensitive: r.CaseSensitive,
		IsActive:      r.IsActive,
		TriggerCount:  r.TriggerCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func fromRuleModels(models []autoReplyRuleModel) []domainAutoReply.Rule {
	out := make([]domainAutoReply.Rule, len(models))
	for i, m := range models {
		out[i] = fromRuleModel(m)
	}
	return out
}

func fromRuleModel(m autoReplyRuleModel) domainAutoReply.Rule {
	return domainAutoReply.Rule{
		ID:            m.ID,
		UserID:        m.UserID,
		DeviceID:      m.DeviceID,
		Keyword:       m.Keyword,
		MatchType:     domainAutoReply.MatchType(m.MatchType),
		Response:      m.Response,
		Priority:      m.Priority,
		CaseSensitive: m.CaseSensitive,
		IsActive:      m.IsActive,
		TriggerCount:  m.TriggerCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
