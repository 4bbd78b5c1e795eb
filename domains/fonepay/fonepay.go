package fonepay

import (
	"context"
	"time"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
)

type Status string

const (
	StatusPending           Status = "pending"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusFailed            Status = "failed"
	StatusCreditUnconfirmed Status = "credit_unconfirmed"
)

var (
	ErrTransactionNotFound = pkgError.NotFoundError("fonepay transaction not found")
	ErrDuplicateReference  = pkgError.ConflictError("transaction reference already submitted")
	ErrStatusChanged       = pkgError.ConflictError("transaction is no longer in a reviewable state")
)

type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	TxnRef        string    `json:"txn_ref"`
	Status        Status    `json:"status"`
	ReviewedBy    string    `json:"reviewed_by,omitempty"`
	WalletTxnID   string    `json:"wallet_txn_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WalletReference ties the wallet ledger row to the payment it settles.
func (t Transaction) WalletReference() string {
	return "fonepay:" + t.ID
}

type SubmitRequest struct {
	Amount float64 `json:"amount"`
	TxnRef string  `json:"txn_ref"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type Update struct {
	Status        Status
	ReviewedBy    string
	WalletTxnID   string
	FailureReason string
}

type Filter struct {
	UserID string
	Status Status
}

type IFonepayRepository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, filter Filter, page utils.PageRequest) ([]Transaction, int64, error)
	// UpdateStatus applies u only while the row is still in one of from.
	UpdateStatus(ctx context.Context, id string, from []Status, u Update) error
}

type IFonepayUsecase interface {
	Submit(ctx context.Context, userID string, req SubmitRequest) (Transaction, error)
	Approve(ctx context.Context, id, adminID string) (Transaction, error)
	Reject(ctx context.Context, id, adminID string, req RejectRequest) (Transaction, error)
	Reconcile(ctx context.Context, id, adminID string) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	List(ctx context.Context, filter Filter, page utils.PageRequest) ([]Transaction, int64, error)
}
