package repository

import (
	"context"
	"errors"
	"time"

	domainBroadcast "github.com/mahalbangetid-beep/scb-sub003/domains/broadcast"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BroadcastGormRepository struct {
	db *gorm.DB
}

var _ domainBroadcast.IBroadcastRepository = (*BroadcastGormRepository)(nil)

func NewBroadcastGormRepository(db *gorm.DB) *BroadcastGormRepository {
	return &BroadcastGormRepository{db: db}
}

func (r *BroadcastGormRepository) Create(ctx context.Context, b *domainBroadcast.Broadcast, recipients []domainBroadcast.Recipient) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domainBroadcast.StatusScheduled
	}
	now := utcNow()
	b.CreatedAt, b.UpdatedAt = now, now
	if b.ScheduledAt.IsZero() {
		b.ScheduledAt = now
	}
	b.TotalRecipients = len(recipients)

	rows := make([]broadcastRecipientModel, len(recipients))
	for i := range recipients {
		rc := &recipients[i]
		if rc.ID == "" {
			rc.ID = uuid.NewString()
		}
		rc.BroadcastID = b.ID
		if rc.Status == "" {
			rc.Status = domainBroadcast.RecipientPending
		}
		rows[i] = broadcastRecipientModel{
			ID:          rc.ID,
			BroadcastID: b.ID,
			Seq:         i,
			Phone:       rc.Phone,
			Status:      string(rc.Status),
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := toBroadcastModel(*b)
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

func (r *BroadcastGormRepository) GetByID(ctx context.Context, id string) (*domainBroadcast.Broadcast, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *BroadcastGormRepository) GetForUser(ctx context.Context, userID, id string) (*domainBroadcast.Broadcast, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *BroadcastGormRepository) first(ctx context.Context, query string, args ...any) (*domainBroadcast.Broadcast, error) {
	var m broadcastModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainBroadcast.ErrBroadcastNotFound
		}
		return nil, err
	}
	b := fromBroadcastModel(m)
	return &b, nil
}

func (r *BroadcastGormRepository) List(ctx context.Context, userID string, status domainBroadcast.Status, page utils.PageRequest) ([]domainBroadcast.Broadcast, int64, error) {
	q := r.db.WithContext(ctx).Model(&broadcastModel{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []broadcastModel
	if err := q.Order("scheduled_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return fromBroadcastModels(models), total, nil
}

func (r *BroadcastGormRepository) ListRecipients(ctx context.Context, broadcastID string, page utils.PageRequest) ([]domainBroadcast.Recipient, int64, error) {
	q := r.db.WithContext(ctx).Model(&broadcastRecipientModel{}).Where("broadcast_id = ?", broadcastID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []broadcastRecipientModel
	if err := q.Order("seq ASC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return fromRecipientModels(models), total, nil
}

func (r *BroadcastGormRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domainBroadcast.Broadcast, error) {
	var models []broadcastModel
	q := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", string(domainBroadcast.StatusScheduled), now).
		Order("scheduled_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return fromBroadcastModels(models), nil
}

// Claim is a conditional update: only the caller that flips scheduled to
// processing gets true.
func (r *BroadcastGormRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&broadcastModel{}).
		Where("id = ? AND status = ?", id, string(domainBroadcast.StatusScheduled)).
		Updates(map[string]any{
			"status":     string(domainBroadcast.StatusProcessing),
			"started_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BroadcastGormRepository) Requeue(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&broadcastModel{}).
		Where("id = ? AND status = ?", id, string(domainBroadcast.StatusProcessing)).
		Updates(map[string]any{
			"status":     string(domainBroadcast.StatusScheduled),
			"started_at": nil,
			"updated_at": utcNow(),
		}).Error
}

func (r *BroadcastGormRepository) Finish(ctx context.Context, id string, status domainBroadcast.Status, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&broadcastModel{}).
		Where("id = ? AND status IN ?", id, []string{string(domainBroadcast.StatusProcessing), string(domainBroadcast.StatusScheduled)}).
		Updates(map[string]any{
			"status":         string(status),
			"failure_reason": reason,
			"completed_at":   at,
			"updated_at":     at,
		})
	return res.Error
}

func (r *BroadcastGormRepository) Cancel(ctx context.Context, id string) (bool, error) {
	now := utcNow()
	res := r.db.WithContext(ctx).Model(&broadcastModel{}).
		Where("id = ? AND status IN ?", id, []string{string(domainBroadcast.StatusScheduled), string(domainBroadcast.StatusProcessing)}).
		Updates(map[string]any{
			"status":       string(domainBroadcast.StatusCancelled),
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BroadcastGormRepository) CurrentStatus(ctx context.Context, id string) (domainBroadcast.Status, error) {
	var statuses []string
	if err := r.db.WithContext(ctx).Model(&broadcastModel{}).Where("id = ?", id).Pluck("status", &statuses).Error; err != nil {
		return "", err
	}
	if len(statuses) == 0 {
		return "", domainBroadcast.ErrBroadcastNotFound
	}
	return domainBroadcast.Status(statuses[0]), nil
}

func (r *BroadcastGormRepository) PendingRecipients(ctx context.Context, broadcastID string) ([]domainBroadcast.Recipient, error) {
	var models []broadcastRecipientModel
	err := r.db.WithContext(ctx).
		Where("broadcast_id = ? AND status = ?", broadcastID, string(domainBroadcast.RecipientPending)).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromRecipientModels(models), nil
}

// MarkRecipient stores the outcome of one send and bumps the broadcast counters.
func (r *BroadcastGormRepository) MarkRecipient(ctx context.Context, rc *domainBroadcast.Recipient) error {
	counter := "failed_count"
	if rc.Status == domainBroadcast.RecipientSent {
		counter = "sent_count"
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&broadcastRecipientModel{}).
			Where("id = ? AND status = ?", rc.ID, string(domainBroadcast.RecipientPending)).
			Updates(map[string]any{
				"status":     string(rc.Status),
				"error":      rc.Error,
				"message_id": rc.MessageID,
				"sent_at":    rc.SentAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&broadcastModel{}).Where("id = ?", rc.BroadcastID).
			UpdateColumns(map[string]any{
				counter:      gorm.Expr(counter + " + 1"),
				"updated_at": utcNow(),
			}).Error
	})
}

// ResetStuck returns broadcasts left in processing by a crash to the queue.
// Recipients already sent stay sent, so resuming never messages them twice.
func (r *BroadcastGormRepository) ResetStuck(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&broadcastModel{}).
		Where("status = ?", string(domainBroadcast.StatusProcessing)).
		Updates(map[string]any{
			"status":     string(domainBroadcast.StatusScheduled),
			"updated_at": utcNow(),
		})
	return res.RowsAffected, res.Error
}

func toBroadcastModel(b domainBroadcast.Broadcast) broadcastModel {
	return broadcastModel{
		ID:              b.ID,
		UserID:          b.UserID,
		DeviceID:        b.DeviceID,
		Name:            b.Name,
		Message:         b.Message,
		Status:          string(b.Status),
		ScheduledAt:     b.ScheduledAt,
		StartedAt:       b.StartedAt,
		CompletedAt:     b.CompletedAt,
		TotalRecipients: b.TotalRecipients,
		SentCount:       b.SentCount,
		FailedCount:     b.FailedCount,
		FailureReason:   b.FailureReason,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func fromBroadcastModels(models []broadcastModel) []domainBroadcast.Broadcast {
	out := make([]domainBroadcast.Broadcast, len(models))
	for i, m := range models {
		out[i] = fromBroadcastModel(m)
	}
	return out
}

func fromBroadcastModel(m broadcastModel) domainBroadcast.Broadcast {
	return domainBroadcast.Broadcast{
		ID:              m.ID,
		UserID:          m.UserID,
		DeviceID:        m.DeviceID,
		Name:            m.Name,
		Message:         m.Message,
		Status:          domainBroadcast.Status(m.Status),
		ScheduledAt:     m.ScheduledAt,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		TotalRecipients: m.TotalRecipients,
		SentCount:       m.SentCount,
		FailedCount:     m.FailedCount,
		FailureReason:   m.FailureReason,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func fromRecipientModels(models []broadcastRecipientModel) []domainBroadcast.Recipient {
	out := make([]domainBroadcast.Recipient, len(models))
	for i, m := range models {
		out[i] = domainBroadcast.Recipient{
			ID:          m.ID,
			BroadcastID: m.BroadcastID,
			Phone:       m.Phone,
			Status:      domainBroadcast.RecipientStatus(m.Status),
			Error:       m.Error,
			MessageID:   m.MessageID,
			SentAt:      m.SentAt,
		}
	}
	return out
}
