package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

type TxnType string

const (
	TxnCredit TxnType = "credit"
	TxnDebit  TxnType = "debit"
)

var (
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrTransactionNotFound = errors.New("wallet transaction not found")
)

type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Transaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         TxnType   `json:"type"`
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balance_after"`
	Reference    string    `json:"reference,omitempty"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entry is one balance movement requested from the repository.
type Entry struct {
	UserID      string
	Type        TxnType
	Amount      float64
	Reference   string
	Description string
}

type AdjustRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type IWalletRepository interface {
	Get(ctx context.Context, userID string) (Wallet, error)
	// Apply writes the balance change and its ledger row atomically. A non-empty
	// reference that already exists returns the existing row and applied=false.
	Apply(ctx context.Context, e Entry) (txn Transaction, applied bool, err error)
	FindByReference(ctx context.Context, reference string) (*Transaction, error)
	ListTransactions(ctx context.Context, userID string, page utils.PageRequest) ([]Transaction, int64, error)
}

type IWalletUsecase interface {
	GetWallet(ctx context.Context, userID string) (Wallet, error)
	Credit(ctx context.Context, userID string, amount float64, reference, description string) (Transaction, error)
	Debit(ctx context.Context, userID string, amount float64, reference, description string) (Transaction, error)
	FindByReference(ctx context.Context, reference string) (*Transaction, error)
	ListTransactions(ctx context.Context, userID string, page utils.PageRequest) ([]Transaction, int64, error)
}
