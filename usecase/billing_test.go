package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/mahalbangetid-beep/scb-sub003/domains/realtime"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletCreditDebit(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	w := e.wallet()
	userID := e.user(t, "w@example.com")

	txn, err := w.Credit(ctx, userID, 1000, "topup:1", "top-up")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, txn.BalanceAfter)
	assert.Equal(t, 1, w.events.count(realtime.EventWalletUpdated))

	// same reference is not applied twice and publishes nothing
	again, err := w.Credit(ctx, userID, 1000, "topup:1", "top-up")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, again.ID)
	assert.Equal(t, 1, w.events.count(realtime.EventWalletUpdated))

	_, err = w.Debit(ctx, userID, 5000, "", "too much")
	assert.ErrorIs(t, err, domainWallet.ErrInsufficientBalance)
	generic, ok := pkgError.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusPaymentRequired, generic.StatusCode())
	assert.Equal(t, "INSUFFICIENT_BALANCE", generic.ErrCode())

	_, err = w.Debit(ctx, userID, 0, "", "zero")
	generic, ok = pkgError.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, generic.StatusCode())

	bal, err := w.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal.Balance)
}

func TestResourceHookFreeThenPaid(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	w := e.wallet()
	hook := e.hook(w, 1)
	userID := e.user(t, "hook@example.com")

	charge, err := hook.Reserve(ctx, userID, domainSubscription.ResourceDevice)
	require.NoError(t, err)
	assert.True(t, charge.Free)
	e.device(t, userID, nil)

	// second device needs funds
	_, err = hook.Reserve(ctx, userID, domainSubscription.ResourceDevice)
	assert.ErrorIs(t, err, domainWallet.ErrInsufficientBalance)

	_, err = w.Credit(ctx, userID, 600, "seed", "seed")
	require.NoError(t, err)
	charge, err = hook.Reserve(ctx, userID, domainSubscription.ResourceDevice)
	require.NoError(t, err)
	assert.False(t, charge.Free)
	assert.Equal(t, 500.0, charge.Price)
	assert.NotEmpty(t, charge.TransactionID)

	d := e.device(t, userID, nil)
	require.NoError(t, hook.Bind(ctx, charge, d.ID))
	sub, err := e.subscriptions.ActiveFor(ctx, domainSubscription.ResourceDevice, d.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), sub.NextBillingAt, time.Minute)

	require.NoError(t, hook.Cancel(ctx, domainSubscription.ResourceDevice, d.ID))
	sub, err = e.subscriptions.ActiveFor(ctx, domainSubscription.ResourceDevice, d.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestResourceHookRelease(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	w := e.wallet()
	hook := e.hook(w, 0)
	userID := e.user(t, "release@example.com")
	_, err := w.Credit(ctx, userID, 500, "seed", "seed")
	require.NoError(t, err)

	charge, err := hook.Reserve(ctx, userID, domainSubscription.ResourceDevice)
	require.NoError(t, err)
	bal, _ := w.GetWallet(ctx, userID)
	assert.Zero(t, bal.Balance)

	require.NoError(t, hook.Release(ctx, charge))
	require.NoError(t, hook.Release(ctx, charge))
	bal, _ = w.GetWallet(ctx, userID)
	assert.Equal(t, 500.0, bal.Balance)
}

func TestRenewDue(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	w := e.wallet()
	hook := e.hook(w, 0)
	rich := e.user(t, "rich@example.com")
	poor := e.user(t, "poor@example.com")
	_, err := w.Credit(ctx, rich, 2000, "seed-rich", "seed")
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour)
	richSub := &domainSubscription.Subscription{UserID: rich, ResourceType: domainSubscription.ResourceDevice, ResourceID: "d1", Price: 500, Status: domainSubscription.StatusActive, PeriodStart: past.Add(-30 * 24 * time.Hour), NextBillingAt: past}
	poorSub := &domainSubscription.Subscription{UserID: poor, ResourceType: domainSubscription.ResourceDevice, ResourceID: "d2", Price: 500, Status: domainSubscription.StatusActive, PeriodStart: past.Add(-30 * 24 * time.Hour), NextBillingAt: past}
	require.NoError(t, e.subscriptions.Create(ctx, richSub))
	require.NoError(t, e.subscriptions.Create(ctx, poorSub))

	res, err := hook.RenewDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Renewed)
	assert.Equal(t, 1, res.Suspended)

	bal, _ := w.GetWallet(ctx, rich)
	assert.Equal(t, 1500.0, bal.Balance)

	// a second run is a no-op: rich is not due, poor is already suspended
	res, err = hook.RenewDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, res.Renewed)
	assert.Zero(t, res.Suspended)

	// funding the poor account reactivates it on the next run
	_, err = w.Credit(ctx, poor, 500, "seed-poor", "seed")
	require.NoError(t, err)
	res, err = hook.RenewDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Renewed)
	sub, err := e.subscriptions.ActiveFor(ctx, domainSubscription.ResourceDevice, "d2")
	require.NoError(t, err)
	assert.Equal(t, domainSubscription.StatusActive, sub.Status)
}

func TestRenewDueReactivatesFromNow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	w := e.wallet()
	hook := e.hook(w, 0)
	user := e.user(t, "late@example.com")

	now := time.Now().UTC()
	suspendedAt := now.Add(-90 * 24 * time.Hour)
	sub := &domainSubscription.Subscription{
		UserID: user, ResourceType: domainSubscription.ResourceDevice, ResourceID: "d1", Price: 500,
		Status: domainSubscription.StatusSuspended, PeriodStart: suspendedAt.Add(-30 * 24 * time.Hour), NextBillingAt: suspendedAt,
	}
	require.NoError(t, e.subscriptions.Create(ctx, sub))
	_, err := w.Credit(ctx, user, 2000, "top-up", "top-up")
	require.NoError(t, err)

	for day := 0; day < 3; day++ {
		_, err := hook.RenewDue(ctx, now.Add(time.Duration(day)*24*time.Hour))
		require.NoError(t, err)
	}

	bal, err := w.GetWallet(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, bal.Balance)

	renewed, err := e.subscriptions.ActiveFor(ctx, domainSubscription.ResourceDevice, "d1")
	require.NoError(t, err)
	require.NotNil(t, renewed)
	assert.Equal(t, domainSubscription.StatusActive, renewed.Status)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), renewed.NextBillingAt, time.Minute)
}
