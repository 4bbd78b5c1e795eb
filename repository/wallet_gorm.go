package repository

import (
	"context"
	"errors"

	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletGormRepository struct {
	db       *gorm.DB
	currency string
}

var _ domainWallet.IWalletRepository = (*WalletGormRepository)(nil)

func NewWalletGormRepository(db *gorm.DB, currency string) *WalletGormRepository {
	return &WalletGormRepository{db: db, currency: currency}
}

func (r *WalletGormRepository) ensureWallet(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&walletModel{
		UserID:    userID,
		Currency:  r.currency,
		UpdatedAt: utcNow(),
	}).Error
}

func (r *WalletGormRepository) Get(ctx context.Context, userID string) (domainWallet.Wallet, error) {
	db := r.db.WithContext(ctx)
	if err := r.ensureWallet(db, userID); err != nil {
		return domainWallet.Wallet{}, err
	}
	var m walletModel
	if err := db.First(&m, "user_id = ?", userID).Error; err != nil {
		return domainWallet.Wallet{}, err
	}
	return domainWallet.Wallet{UserID: m.UserID, Balance: m.Balance, Currency: m.Currency, UpdatedAt: m.UpdatedAt}, nil
}

// Apply moves the balance and writes the ledger row in one transaction. The
// debit is a guarded update so concurrent debits can never overdraw.
func (r *WalletGormRepository) Apply(ctx context.Context, e domainWallet.Entry) (domainWallet.Transaction, bool, error) {
	if e.Amount <= 0 {
		return domainWallet.Transaction{}, false, domainWallet.ErrInvalidAmount
	}

	var (
		out     domainWallet.Transaction
		applied bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e.Reference != "" {
			var existing walletTransactionModel
			err := tx.Where("reference = ?", e.Reference).First(&existing).Error
			if err == nil {
				out = fromWalletTxnModel(existing)
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := r.ensureWallet(tx, e.UserID); err != nil {
			return err
		}

		now := utcNow()
		q := tx.Model(&walletModel{}).Where("user_id = ?", e.UserID)
		var delta any
		switch e.Type {
		case domainWallet.TxnCredit:
			delta = gorm.Expr("balance + ?", e.Amount)
		case domainWallet.TxnDebit:
			q = q.Where("balance >= ?", e.Amount)
			delta = gorm.Expr("balance - ?", e.Amount)
		default:
			return errors.New("unknown wallet transaction type")
		}
		res := q.Updates(map[string]any{"balance": delta, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domainWallet.ErrInsufficientBalance
		}

		var w walletModel
		if err := tx.First(&w, "user_id = ?", e.UserID).Error; err != nil {
			return err
		}

		m := walletTransactionModel{
			ID:           uuid.NewString(),
			UserID:       e.UserID,
			Type:         string(e.Type),
			Amount:       e.Amount,
			BalanceAfter: w.Balance,
			Reference:    nullableRef(e.Reference),
			Description:  e.Description,
			CreatedAt:    now,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		out = fromWalletTxnModel(m)
		applied = true
		return nil
	})
	if err != nil && isUniqueViolation(err) && e.Reference != "" {
		// lost a race with another writer of the same reference
		existing, findErr := r.FindByReference(ctx, e.Reference)
		if findErr == nil {
			return *existing, false, nil
		}
	}
	if err != nil {
		return domainWallet.Transaction{}, false, err
	}
	return out, applied, nil
}

func (r *WalletGormRepository) FindByReference(ctx context.Context, reference string) (*domainWallet.Transaction, error) {
	var m walletTransactionModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainWallet.ErrTransactionNotFound
		}
		return nil, err
	}
	t := fromWalletTxnModel(m)
	return &t, nil
}

func (r *WalletGormRepository) ListTransactions(ctx context.Context, userID string, page utils.PageRequest) ([]domainWallet.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&walletTransactionModel{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []walletTransactionModel
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domainWallet.Transaction, len(models))
	for i, m := range models {
		out[i] = fromWalletTxnModel(m)
	}
	return out, total, nil
}

func fromWalletTxnModel(m walletTransactionModel) domainWallet.Transaction {
	return domainWallet.Transaction{
		ID:           m.ID,
		UserID:       m.UserID,
		Type:         domainWallet.TxnType(m.Type),
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		Reference:    derefString(m.Reference),
		Description:  m.Description,
		CreatedAt:    m.CreatedAt,
	}
}
