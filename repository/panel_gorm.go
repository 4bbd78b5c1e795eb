package repository

import (
	"context"
	"errors"

	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PanelGormRepository stores panels as given; the API key arrives already encrypted.
type PanelGormRepository struct {
	db *gorm.DB
}

var _ domainPanel.IPanelRepository = (*PanelGormRepository)(nil)

func NewPanelGormRepository(db *gorm.DB) *PanelGormRepository {
	return &PanelGormRepository{db: db}
}

func (r *PanelGormRepository) Create(ctx context.Context, p *domainPanel.Panel) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domainPanel.StatusActive
	}
	now := utcNow()
	p.CreatedAt, p.UpdatedAt = now, now
	m := toPanelModel(*p)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *PanelGormRepository) GetByID(ctx context.Context, id string) (*domainPanel.Panel, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PanelGormRepository) GetForUser(ctx context.Context, userID, id string) (*domainPanel.Panel, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *PanelGormRepository) first(ctx context.Context, query string, args ...any) (*domainPanel.Panel, error) {
	var m panelModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainPanel.ErrPanelNotFound
		}
		return nil, err
	}
	p := fromPanelModel(m)
	return &p, nil
}

func (r *PanelGormRepository) List(ctx context.Context, userID string, page utils.PageRequest) ([]domainPanel.Panel, int64, error) {
	q := r.db.WithContext(ctx).Model(&panelModel{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []panelModel
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return fromPanelModels(models), total, nil
}

func (r *PanelGormRepository) ListAll(ctx context.Context) ([]domainPanel.Panel, error) {
	var models []panelModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromPanelModels(models), nil
}

func (r *PanelGormRepository) Update(ctx context.Context, p *domainPanel.Panel) error {
	p.UpdatedAt = utcNow()
	res := r.db.WithContext(ctx).Model(&panelModel{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":            p.Name,
		"url":             p.URL,
		"api_key":         p.APIKey,
		"status":          string(p.Status),
		"balance":         p.Balance,
		"currency":        p.Currency,
		"last_checked_at": p.LastCheckedAt,
		"last_error":      p.LastError,
		"updated_at":      p.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainPanel.ErrPanelNotFound
	}
	return nil
}

func (r *PanelGormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&panelModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domainPanel.ErrPanelNotFound
		}
		// devices keep working without their panel binding
		return tx.Model(&deviceModel{}).Where("panel_id = ?", id).Update("panel_id", nil).Error
	})
}

func (r *PanelGormRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&panelModel{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func toPanelModel(p domainPanel.Panel) panelModel {
	return panelModel{
		ID:            p.ID,
		UserID:        p.UserID,
		Name:          p.Name,
		URL:           p.URL,
		APIKey:        p.APIKey,
		Status:        string(p.Status),
		Balance:       p.Balance,
		Currency:      p.Currency,
		LastCheckedAt: p.LastCheckedAt,
		LastError:     p.LastError,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func fromPanelModels(models []panelModel) []domainPanel.Panel {
	out := make([]domainPanel.Panel, len(models))
	for i, m := range models {
		out[i] = fromPanelModel(m)
	}
	return out
}

func fromPanelModel(m panelModel) domainPanel.Panel {
	return domainPanel.Panel{
		ID:            m.ID,
		UserID:        m.UserID,
		Name:          m.Name,
		URL:           m.URL,
		APIKey:        m.APIKey,
		Status:        domainPanel.Status(m.Status),
		Balance:       m.Balance,
		Currency:      m.Currency,
		LastCheckedAt: m.LastCheckedAt,
		LastError:     m.LastError,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
