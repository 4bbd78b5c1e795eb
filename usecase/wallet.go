package usecase

import (
	"context"
	"errors"
	"net/http"

	"github.com/mahalbangetid-beep/scb-sub003/domains/realtime"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/sirupsen/logrus"
)

type serviceWallet struct {
	repo      domainWallet.IWalletRepository
	publisher realtime.Publisher
}

func NewWalletService(repo domainWallet.IWalletRepository, publisher realtime.Publisher) domainWallet.IWalletUsecase {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &serviceWallet{repo: repo, publisher: publisher}
}

func (s *serviceWallet) GetWallet(ctx context.Context, userID string) (domainWallet.Wallet, error) {
	return s.repo.Get(ctx, userID)
}

// Credit is idempotent on a non-empty reference: a repeated call returns the
// ledger row written the first time.
func (s *serviceWallet) Credit(ctx context.Context, userID string, amount float64, reference, description string) (domainWallet.Transaction, error) {
	return s.apply(ctx, domainWallet.Entry{
		UserID: userID, Type: domainWallet.TxnCredit, Amount: amount, Reference: reference, Description: description,
	})
}

func (s *serviceWallet) Debit(ctx context.Context, userID string, amount float64, reference, description string) (domainWallet.Transaction, error) {
	return s.apply(ctx, domainWallet.Entry{
		UserID: userID, Type: domainWallet.TxnDebit, Amount: amount, Reference: reference, Description: description,
	})
}

func (s *serviceWallet) apply(ctx context.Context, e domainWallet.Entry) (domainWallet.Transaction, error) {
	txn, applied, err := s.repo.Apply(ctx, e)
	if err != nil {
		switch {
		case errors.Is(err, domainWallet.ErrInsufficientBalance):
			return domainWallet.Transaction{}, pkgError.WrapAppError(err, "insufficient wallet balance", http.StatusPaymentRequired).WithCode("INSUFFICIENT_BALANCE")
		case errors.Is(err, domainWallet.ErrInvalidAmount):
			return domainWallet.Transaction{}, pkgError.ValidationError("amount: must be greater than zero")
		}
		return domainWallet.Transaction{}, err
	}
	if !applied {
		logrus.WithFields(logrus.Fields{"user_id": e.UserID, "reference": e.Reference}).Info("[WALLET] Reference already applied, returning existing transaction")
		return txn, nil
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       e.UserID,
		"type":          e.Type,
		"amount":        e.Amount,
		"balance_after": txn.BalanceAfter,
	}).Info("[WALLET] Balance updated")
	s.publisher.PublishToUser(e.UserID, realtime.EventWalletUpdated, map[string]any{
		"balance":     txn.BalanceAfter,
		"transaction": txn,
	})
	return txn, nil
}

func (s *serviceWallet) FindByReference(ctx context.Context, reference string) (*domainWallet.Transaction, error) {
	return s.repo.FindByReference(ctx, reference)
}

func (s *serviceWallet) ListTransactions(ctx context.Context, userID string, page utils.PageRequest) ([]domainWallet.Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, userID, page)
}
