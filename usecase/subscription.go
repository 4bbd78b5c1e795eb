package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	domainWallet "github.com/mahalbangetid-beep/scb-sub003/domains/wallet"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/sirupsen/logrus"
)

type serviceResourceHook struct {
	repo       domainSubscription.ISubscriptionRepository
	wallet     domainWallet.IWalletUsecase
	plans      map[domainSubscription.ResourceType]domainSubscription.Plan
	counters   map[domainSubscription.ResourceType]domainSubscription.ResourceCounter
	periodDays int
	now        func() time.Time
}

// NewResourceHook bills resources beyond the free quota of their plan.
func NewResourceHook(
	repo domainSubscription.ISubscriptionRepository,
	wallet domainWallet.IWalletUsecase,
	plans map[domainSubscription.ResourceType]domainSubscription.Plan,
	counters map[domainSubscription.ResourceType]domainSubscription.ResourceCounter,
	periodDays int,
) domainSubscription.IResourceHook {
	if periodDays <= 0 {
		periodDays = 30
	}
	return &serviceResourceHook{
		repo:       repo,
		wallet:     wallet,
		plans:      plans,
		counters:   counters,
		periodDays: periodDays,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *serviceResourceHook) period() time.Duration {
	return time.Duration(s.periodDays) * 24 * time.Hour
}

func (s *serviceResourceHook) Reserve(ctx context.Context, userID string, resourceType domainSubscription.ResourceType) (domainSubscription.Charge, error) {
	plan, ok := s.plans[resourceType]
	if !ok {
		return domainSubscription.Charge{}, pkgError.InternalServerError(fmt.Sprintf("no plan for resource %s", resourceType))
	}
	charge := domainSubscription.Charge{UserID: userID, ResourceType: resourceType, Free: true}

	if count := s.counters[resourceType]; count != nil {
		owned, err := count(ctx, userID)
		if err != nil {
			return domainSubscription.Charge{}, err
		}
		if owned < int64(plan.FreeQuota) || plan.Price <= 0 {
			return charge, nil
		}
	} else if plan.Price <= 0 {
		return charge, nil
	}

	charge.Free = false
	charge.Price = plan.Price
	charge.Reference = fmt.Sprintf("subscription:%s:%s:%s", resourceType, userID, uuid.NewString())
	txn, err := s.wallet.Debit(ctx, userID, plan.Price, charge.Reference, fmt.Sprintf("%s subscription (%d days)", resourceType, s.periodDays))
	if err != nil {
		return domainSubscription.Charge{}, err
	}
	charge.TransactionID = txn.ID
	return charge, nil
}

func (s *serviceResourceHook) Bind(ctx context.Context, charge domainSubscription.Charge, resourceID string) error {
	if charge.Free {
		return nil
	}
	now := s.now()
	sub := &domainSubscription.Subscription{
		UserID:        charge.UserID,
		ResourceType:  charge.ResourceType,
		ResourceID:    resourceID,
		Price:         charge.Price,
		Status:        domainSubscription.StatusActive,
		PeriodStart:   now,
		NextBillingAt: now.Add(s.period()),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":       charge.UserID,
		"resource_type": charge.ResourceType,
		"resource_id":   resourceID,
		"price":         charge.Price,
	}).Info("[BILLING] Subscription started")
	return nil
}

// Release refunds a paid reservation whose resource was never created.
func (s *serviceResourceHook) Release(ctx context.Context, charge domainSubscription.Charge) error {
	if charge.Free || charge.Reference == "" {
		return nil
	}
	_, err := s.wallet.Credit(ctx, charge.UserID, charge.Price, "refund:"+charge.Reference, fmt.Sprintf("refund %s subscription", charge.ResourceType))
	if err != nil {
		logrus.WithError(err).WithField("reference", charge.Reference).Error("[BILLING] Refund failed")
	}
	return err
}

func (s *serviceResourceHook) Cancel(ctx context.Context, resourceType domainSubscription.ResourceType, resourceID string) error {
	sub, err := s.repo.ActiveFor(ctx, resourceType, resourceID)
	if err != nil || sub == nil {
		return err
	}
	return s.repo.SetStatus(ctx, sub.ID, domainSubscription.StatusCancelled)
}

// RenewDue charges every subscription whose period has ended. The wallet
// reference is derived from the billing date, so a rerun on the same day does
// not charge twice.
func (s *serviceResourceHook) RenewDue(ctx context.Context, now time.Time) (domainSubscription.RenewalResult, error) {
	var result domainSubscription.RenewalResult
	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return result, err
	}

	for _, sub := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		ref := fmt.Sprintf("renewal:%s:%s", sub.ID, sub.NextBillingAt.UTC().Format("2006-01-02"))
		_, err := s.wallet.Debit(ctx, sub.UserID, sub.Price, ref, fmt.Sprintf("%s subscription renewal", sub.ResourceType))
		if err != nil {
			if errors.Is(err, domainWallet.ErrInsufficientBalance) {
				if sub.Status != domainSubscription.StatusSuspended {
					if err := s.repo.SetStatus(ctx, sub.ID, domainSubscription.StatusSuspended); err != nil {
						logrus.WithError(err).Errorf("[BILLING] Failed to suspend subscription %s", sub.ID)
						continue
					}
					result.Suspended++
				}
				continue
			}
			logrus.WithError(err).Errorf("[BILLING] Renewal debit failed for subscription %s", sub.ID)
			continue
		}

		start := sub.NextBillingAt
		if sub.Status == domainSubscription.StatusSuspended {
			// reactivation starts a fresh period, the suspended months are not billed
			start = now
		}
		if err := s.repo.Renew(ctx, sub.ID, start, start.Add(s.period())); err != nil {
			logrus.WithError(err).Errorf("[BILLING] Subscription %s charged but not extended", sub.ID)
			continue
		}
		result.Renewed++
	}

	if result.Renewed > 0 || result.Suspended > 0 {
		logrus.Infof("[BILLING] Renewal run: %d renewed, %d suspended", result.Renewed, result.Suspended)
	}
	return result, nil
}

func (s *serviceResourceHook) List(ctx context.Context, userID string, page utils.PageRequest) ([]domainSubscription.Subscription, int64, error) {
	return s.repo.ListByUser(ctx, userID, page)
}
