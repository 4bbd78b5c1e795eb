package repository

import (
	"context"
	"errors"

	domainFonepay "github.com/mahalbangetid-beep/scb-sub003/domains/fonepay"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FonepayGormRepository struct {
	db *gorm.DB
}

var _ domainFonepay.IFonepayRepository = (*FonepayGormRepository)(nil)

func NewFonepayGormRepository(db *gorm.DB) *FonepayGormRepository {
	return &FonepayGormRepository{db: db}
}

func (r *FonepayGormRepository) Create(ctx context.Context, t *domainFonepay.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domainFonepay.StatusPending
	}
	now := utcNow()
	t.CreatedAt, t.UpdatedAt = now, now
	m := toFonepayModel(*t)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainFonepay.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *FonepayGormRepository) GetByID(ctx context.Context, id string) (*domainFonepay.Transaction, error) {
	var m fonepayTransactionModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainFonepay.ErrTransactionNotFound
		}
		return nil, err
	}
	t := fromFonepayModel(m)
	return &t, nil
}

func (r *FonepayGormRepository) List(ctx context.Context, filter domainFonepay.Filter, page utils.PageRequest) ([]domainFonepay.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&fonepayTransactionModel{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []fonepayTransactionModel
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domainFonepay.Transaction, len(models))
	for i, m := range models {
		out[i] = fromFonepayModel(m)
	}
	return out, total, nil
}

func (r *FonepayGormRepository) UpdateStatus(ctx context.Context, id string, from []domainFonepay.Status, u domainFonepay.Update) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	updates := map[string]any{
		"status":         string(u.Status),
		"failure_reason": u.FailureReason,
		"updated_at":     utcNow(),
	}
	if u.ReviewedBy != "" {
		updates["reviewed_by"] = u.ReviewedBy
	}
	if u.WalletTxnID != "" {
		updates["wallet_txn_id"] = u.WalletTxnID
	}

	res := r.db.WithContext(ctx).Model(&fonepayTransactionModel{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domainFonepay.ErrStatusChanged
	}
	return nil
}

func toFonepayModel(t domainFonepay.Transaction) fonepayTransactionModel {
	return fonepayTransactionModel{
		ID:            t.ID,
		UserID:        t.UserID,
		Amount:        t.Amount,
		TxnRef:        t.TxnRef,
		Status:        string(t.Status),
		ReviewedBy:    t.ReviewedBy,
		WalletTxnID:   t.WalletTxnID,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func fromFonepayModel(m fonepayTransactionModel) domainFonepay.Transaction {
	return domainFonepay.Transaction{
		ID:            m.ID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		TxnRef:        m.TxnRef,
		Status:        domainFonepay.Status(m.Status),
		ReviewedBy:    m.ReviewedBy,
		WalletTxnID:   m.WalletTxnID,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
