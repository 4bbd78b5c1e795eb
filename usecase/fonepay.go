package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	domainAudit "github.com/mahalbangetid-beep/scb-sub003/domains/audit"
	domainFonepay "github.com/mahalbangetid-beep/scb-sub003/domains/fonepay"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/validations"
	"github.com/sirupsen/logrus"
)

const (
	auditFonepaySubmit            = "fonepay.submit"
	auditFonepayApprove           = "fonepay.approve"
	auditFonepayReject            = "fonepay.reject"
	auditFonepayCreditFailed      = "fonepay.credit_failed"
	auditFonepayCreditUnconfirmed = "fonepay.credit_unconfirmed"
	auditFonepayReconcile         = "fonepay.reconcile"
	auditEntityFonepay            = "fonepay_transaction"
)

type serviceFonepay struct {
	repo   domainFonepay.IFonepayRepository
	wallet domainWallet.IWalletUsecase
	audit  domainAudit.IAuditRepository
	sink   domainAudit.FileSink
	now    func() time.Time
}

func NewFonepayService(
	repo domainFonepay.IFonepayRepository,
	wallet domainWallet.IWalletUsecase,
	audit domainAudit.IAuditRepository,
	sink domainAudit.FileSink,
) domainFonepay.IFonepayUsecase {
	return &serviceFonepay{
		repo:   repo,
		wallet: wallet,
		audit:  audit,
		sink:   sink,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *serviceFonepay) Submit(ctx context.Context, userID string, req domainFonepay.SubmitRequest) (domainFonepay.Transaction, error) {
	req.TxnRef = strings.ToUpper(strings.TrimSpace(req.TxnRef))
	if err := validations.ValidateFonepaySubmit(ctx, req); err != nil {
		return domainFonepay.Transaction{}, err
	}
	t := &domainFonepay.Transaction{
		UserID: userID,
		Amount: req.Amount,
		TxnRef: req.TxnRef,
		Status: domainFonepay.StatusPending,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return domainFonepay.Transaction{}, err
	}
	s.record(ctx, userID, auditFonepaySubmit, t, domainAudit.SeverityInfo, map[string]any{"amount": t.Amount, "txn_ref": t.TxnRef})
	return *t, nil
}

// Approve credits the wallet and then records the approval. The two writes are
// not atomic: when the credit succeeds but the approval cannot be stored, the
// transaction is parked in credit_unconfirmed and the event is written to the
// application log, the audit table and the audit file so it can be reconciled.
func (s *serviceFonepay) Approve(ctx context.Context, id, adminID string) (domainFonepay.Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainFonepay.Transaction{}, err
	}
	if t.Status != domainFonepay.StatusPending && t.Status != domainFonepay.StatusFailed {
		return domainFonepay.Transaction{}, domainFonepay.ErrStatusChanged
	}
	reviewable := []domainFonepay.Status{domainFonepay.StatusPending, domainFonepay.StatusFailed}

	txn, err := s.wallet.Credit(ctx, t.UserID, t.Amount, t.WalletReference(), "FonePay top-up "+t.TxnRef)
	if err != nil {
		reason := "wallet credit failed: " + err.Error()
		if updErr := s.repo.UpdateStatus(ctx, id, reviewable, domainFonepay.Update{
			Status: domainFonepay.StatusFailed, ReviewedBy: adminID, FailureReason: reason,
		}); updErr != nil {
			logrus.WithError(updErr).Errorf("[FONEPAY] Failed to mark transaction %s as failed", id)
		}
		s.record(ctx, adminID, auditFonepayCreditFailed, t, domainAudit.SeverityWarning, map[string]any{"error": err.Error()})
		return domainFonepay.Transaction{}, pkgError.WrapAppError(err, "wallet credit failed, transaction marked as failed", http.StatusBadGateway).WithCode("CREDIT_FAILED")
	}

	err = s.repo.UpdateStatus(ctx, id, reviewable, domainFonepay.Update{
		Status: domainFonepay.StatusApproved, ReviewedBy: adminID, WalletTxnID: txn.ID,
	})
	if err == nil {
		t.Status = domainFonepay.StatusApproved
		t.ReviewedBy = adminID
		t.WalletTxnID = txn.ID
		t.FailureReason = ""
		s.record(ctx, adminID, auditFonepayApprove, t, domainAudit.SeverityInfo, map[string]any{
			"amount": t.Amount, "wallet_txn_id": txn.ID, "balance_after": txn.BalanceAfter,
		})
		return *t, nil
	}

	// a concurrent approval of the same row already settled it with this credit
	if errors.Is(err, domainFonepay.ErrStatusChanged) {
		if cur, getErr := s.repo.GetByID(ctx, id); getErr == nil &&
			cur.Status == domainFonepay.StatusApproved && cur.WalletTxnID == txn.ID {
			return *cur, nil
		}
	}

	return domainFonepay.Transaction{}, s.creditUnconfirmed(ctx, t, adminID, txn, err)
}

func (s *serviceFonepay) creditUnconfirmed(ctx context.Context, t *domainFonepay.Transaction, adminID string, txn domainWallet.Transaction, cause error) error {
	fields := logrus.Fields{
		"fonepay_id":    t.ID,
		"user_id":       t.UserID,
		"amount":        t.Amount,
		"txn_ref":       t.TxnRef,
		"wallet_txn_id": txn.ID,
		"admin_id":      adminID,
	}
	logrus.WithFields(fields).WithError(cause).Error("[FONEPAY] Wallet credited but approval was not stored")

	if updErr := s.repo.UpdateStatus(ctx, t.ID, []domainFonepay.Status{domainFonepay.StatusPending, domainFonepay.StatusFailed}, domainFonepay.Update{
		Status:        domainFonepay.StatusCreditUnconfirmed,
		ReviewedBy:    adminID,
		WalletTxnID:   txn.ID,
		FailureReason: "approval not persisted: " + cause.Error(),
	}); updErr != nil {
		logrus.WithFields(fields).WithError(updErr).Error("[FONEPAY] Failed to mark transaction as credit_unconfirmed")
	}

	entry := domainAudit.Entry{
		ID:         uuid.NewString(),
		ActorID:    adminID,
		Action:     auditFonepayCreditUnconfirmed,
		EntityType: auditEntityFonepay,
		EntityID:   t.ID,
		Severity:   domainAudit.SeverityCritical,
		Detail: map[string]any{
			"user_id":       t.UserID,
			"amount":        t.Amount,
			"txn_ref":       t.TxnRef,
			"wallet_txn_id": txn.ID,
			"error":         cause.Error(),
		},
		CreatedAt: s.now(),
	}
	if err := s.audit.Record(ctx, &entry); err != nil {
		logrus.WithFields(fields).WithError(err).Error("[FONEPAY] Failed to write audit row")
	}
	if s.sink != nil {
		if err := s.sink.Write(entry); err != nil {
			logrus.WithFields(fields).WithError(err).Error("[FONEPAY] Failed to write audit file")
		}
	}

	msg := fmt.Sprintf("wallet was credited (transaction %s) but the approval could not be saved; reconcile transaction %s", txn.ID, t.ID)
	return pkgError.WrapAppError(cause, msg, http.StatusInternalServerError).WithCode("CREDIT_UNCONFIRMED")
}

func (s *serviceFonepay) Reject(ctx context.Context, id, adminID string, req domainFonepay.RejectRequest) (domainFonepay.Transaction, error) {
	if err := validations.ValidateFonepayReject(ctx, req); err != nil {
		return domainFonepay.Transaction{}, err
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainFonepay.Transaction{}, err
	}
	reason := strings.TrimSpace(req.Reason)
	if err := s.repo.UpdateStatus(ctx, id, []domainFonepay.Status{domainFonepay.StatusPending}, domainFonepay.Update{
		Status: domainFonepay.StatusRejected, ReviewedBy: adminID, FailureReason: reason,
	}); err != nil {
		return domainFonepay.Transaction{}, err
	}
	t.Status = domainFonepay.StatusRejected
	t.ReviewedBy = adminID
	t.FailureReason = reason
	s.record(ctx, adminID, auditFonepayReject, t, domainAudit.SeverityInfo, map[string]any{"reason": reason})
	return *t, nil
}

// Reconcile settles a credit_unconfirmed transaction from the wallet ledger.
func (s *serviceFonepay) Reconcile(ctx context.Context, id, adminID string) (domainFonepay.Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainFonepay.Transaction{}, err
	}
	if t.Status != domainFonepay.StatusCreditUnconfirmed {
		return domainFonepay.Transaction{}, pkgError.ConflictError("only credit_unconfirmed transactions can be reconciled")
	}

	u := domainFonepay.Update{ReviewedBy: adminID}
	txn, err := s.wallet.FindByReference(ctx, t.WalletReference())
	switch {
	case err == nil:
		u.Status = domainFonepay.StatusApproved
		u.WalletTxnID = txn.ID
	case errors.Is(err, domainWallet.ErrTransactionNotFound):
		u.Status = domainFonepay.StatusFailed
		u.FailureReason = "no wallet credit found for this payment"
	default:
		return domainFonepay.Transaction{}, err
	}

	if err := s.repo.UpdateStatus(ctx, id, []domainFonepay.Status{domainFonepay.StatusCreditUnconfirmed}, u); err != nil {
		return domainFonepay.Transaction{}, err
	}
	t.Status = u.Status
	t.ReviewedBy = adminID
	t.WalletTxnID = u.WalletTxnID
	t.FailureReason = u.FailureReason
	s.record(ctx, adminID, auditFonepayReconcile, t, domainAudit.SeverityWarning, map[string]any{
		"outcome": string(u.Status), "wallet_txn_id": u.WalletTxnID,
	})
	return *t, nil
}

func (s *serviceFonepay) Get(ctx context.Context, id string) (domainFonepay.Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainFonepay.Transaction{}, err
	}
	return *t, nil
}

func (s *serviceFonepay) List(ctx context.Context, filter domainFonepay.Filter, page utils.PageRequest) ([]domainFonepay.Transaction, int64, error) {
	return s.repo.List(ctx, filter, page)
}

func (s *serviceFonepay) record(ctx context.Context, actorID, action string, t *domainFonepay.Transaction, severity domainAudit.Severity, detail map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &domainAudit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: auditEntityFonepay,
		EntityID:   t.ID,
		Severity:   severity,
		Detail:     detail,
		CreatedAt:  s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		logrus.WithError(err).Warnf("[FONEPAY] Failed to audit %s of %s", action, t.ID)
	}
}
