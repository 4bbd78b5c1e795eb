package repository

import (
	"context"
	"errors"
	"time"

	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionGormRepository struct {
	db *gorm.DB
}

var _ domainSubscription.ISubscriptionRepository = (*SubscriptionGormRepository)(nil)

func NewSubscriptionGormRepository(db *gorm.DB) *SubscriptionGormRepository {
	return &SubscriptionGormRepository{db: db}
}

func (r *SubscriptionGormRepository) Create(ctx context.Context, s *domainSubscription.Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = domainSubscription.StatusActive
	}
	now := utcNow()
	s.CreatedAt, s.UpdatedAt = now, now
	m := toSubscriptionModel(*s)
	return r.db.WithContext(ctx).Create(&m).Error
}

// ActiveFor returns the live (active or suspended) subscription of a resource, nil if none.
func (r *SubscriptionGormRepository) ActiveFor(ctx context.Context, resourceType domainSubscription.ResourceType, resourceID string) (*domainSubscription.Subscription, error) {
	var m resourceSubscriptionModel
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ? AND status IN ?", string(resourceType), resourceID,
			[]string{string(domainSubscription.StatusActive), string(domainSubscription.StatusSuspended)}).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s := fromSubscriptionModel(m)
	return &s, nil
}

func (r *SubscriptionGormRepository) SetStatus(ctx context.Context, id string, status domainSubscription.Status) error {
	res := r.db.WithContext(ctx).Model(&resourceSubscriptionModel{}).Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": utcNow()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionGormRepository) Renew(ctx context.Context, id string, periodStart, next time.Time) error {
	res := r.db.WithContext(ctx).Model(&resourceSubscriptionModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":          string(domainSubscription.StatusActive),
			"period_start":    periodStart,
			"next_billing_at": next,
			"updated_at":      utcNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errSubscriptionNotFound
	}
	return nil
}

// ListDue returns active subscriptions whose period ended, plus suspended ones
// so they can resume once the wallet is topped up.
func (r *SubscriptionGormRepository) ListDue(ctx context.Context, now time.Time) ([]domainSubscription.Subscription, error) {
	var models []resourceSubscriptionModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND next_billing_at <= ?",
			[]string{string(domainSubscription.StatusActive), string(domainSubscription.StatusSuspended)}, now).
		Order("next_billing_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domainSubscription.Subscription, len(models))
	for i, m := range models {
		out[i] = fromSubscriptionModel(m)
	}
	return out, nil
}

func (r *SubscriptionGormRepository) ListByUser(ctx context.Context, userID string, page utils.PageRequest) ([]domainSubscription.Subscription, int64, error) {
	q := r.db.WithContext(ctx).Model(&resourceSubscriptionModel{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []resourceSubscriptionModel
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domainSubscription.Subscription, len(models))
	for i, m := range models {
		out[i] = fromSubscriptionModel(m)
	}
	return out, total, nil
}

func toSubscriptionModel(s domainSubscription.Subscription) resourceSubscriptionModel {
	return resourceSubscriptionModel{
		ID:            s.ID,
		UserID:        s.UserID,
		ResourceType:  string(s.ResourceType),
		ResourceID:    s.ResourceID,
		Price:         s.Price,
		Status:        string(s.Status),
		PeriodStart:   s.PeriodStart,
		NextBillingAt: s.NextBillingAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSubscriptionModel(m resourceSubscriptionModel) domainSubscription.Subscription {
	return domainSubscription.Subscription{
		ID:            m.ID,
		UserID:        m.UserID,
		ResourceType:  domainSubscription.ResourceType(m.ResourceType),
		ResourceID:    m.ResourceID,
		Price:         m.Price,
		Status:        domainSubscription.Status(m.Status),
		PeriodStart:   m.PeriodStart,
		NextBillingAt: m.NextBillingAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
