package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	domainBroadcast "github.com/mahalbangetid-beep/scb-sub003/domains/broadcast"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	"github.com/mahalbangetid-beep/scb-sub003/domains/realtime"
	"github.com/mahalbangetid-beep/scb-sub003/infrastructure/valkey"
	"github.com/sirupsen/logrus"
)

const dueBatchSize = 20

// Sender is the part of the session manager the scheduler needs.
type Sender interface {
	IsConnected(deviceID string) bool
	SendText(ctx context.Context, deviceID, to, text string) (string, error)
}

// Locker guards a claim across nodes. *valkey.Client satisfies it.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (*valkey.Lock, error)
}

type BroadcastOptions struct {
	MessageDelay     time.Duration
	SendTimeout      time.Duration
	OfflineThreshold time.Duration
}

// BroadcastRunner delivers due broadcasts, one recipient at a time.
type BroadcastRunner struct {
	repo      domainBroadcast.IBroadcastRepository
	devices   domainDevice.IDeviceRepository
	sender    Sender
	publisher realtime.Publisher
	locker    Locker
	opts      BroadcastOptions

	running atomic.Bool
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewBroadcastRunner(
	repo domainBroadcast.IBroadcastRepository,
	devices domainDevice.IDeviceRepository,
	sender Sender,
	publisher realtime.Publisher,
	locker Locker,
	opts BroadcastOptions,
) *BroadcastRunner {
	if opts.MessageDelay <= 0 {
		opts.MessageDelay = 1500 * time.Millisecond
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	if opts.OfflineThreshold <= 0 {
		opts.OfflineThreshold = 24 * time.Hour
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &BroadcastRunner{
		repo:      repo,
		devices:   devices,
		sender:    sender,
		publisher: publisher,
		locker:    locker,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Recover puts broadcasts interrupted by a crash back in the queue.
func (r *BroadcastRunner) Recover(ctx context.Context) error {
	n, err := r.repo.ResetStuck(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logrus.Warnf("[BROADCAST] Requeued %d broadcast(s) left in processing", n)
	}
	return nil
}

// Tick processes every due broadcast. Overlapping ticks return immediately.
func (r *BroadcastRunner) Tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		logrus.Debug("[BROADCAST] Previous tick still running, skipping")
		return
	}
	defer r.running.Store(false)

	due, err := r.repo.ListDue(ctx, r.now(), dueBatchSize)
	if err != nil {
		logrus.WithError(err).Error("[BROADCAST] Failed to list due broadcasts")
		return
	}
	for _, b := range due {
		if ctx.Err() != nil {
			return
		}
		if err := r.process(ctx, b); err != nil {
			logrus.WithError(err).Errorf("[BROADCAST] Broadcast %s", b.ID)
		}
	}
}

func (r *BroadcastRunner) process(ctx context.Context, b domainBroadcast.Broadcast) error {
	if r.locker != nil {
		lock, err := r.locker.TryLock(ctx, "broadcast:"+b.ID, r.lockTTL(b))
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if lock == nil {
			return nil
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logrus.WithError(err).Warnf("[BROADCAST] Failed to release lock of %s", b.ID)
			}
		}()
	}

	// claimed before any message goes out, so a later tick cannot pick it up again
	claimed, err := r.repo.Claim(ctx, b.ID, r.now())
	if err != nil || !claimed {
		return err
	}
	b.Status = domainBroadcast.StatusProcessing

	device, err := r.devices.GetByID(ctx, b.DeviceID)
	if err != nil {
		if errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return r.finish(ctx, b, domainBroadcast.StatusFailed, "device no longer exists")
		}
		_ = r.repo.Requeue(ctx, b.ID)
		return err
	}

	if !r.sender.IsConnected(device.ID) {
		return r.handleOffline(ctx, b, *device)
	}
	return r.send(ctx, b)
}

func (r *BroadcastRunner) lockTTL(b domainBroadcast.Broadcast) time.Duration {
	per := r.opts.MessageDelay + r.opts.SendTimeout
	return time.Duration(b.TotalRecipients+1)*per + time.Minute
}

func (r *BroadcastRunner) handleOffline(ctx context.Context, b domainBroadcast.Broadcast, device domainDevice.Device) error {
	now := r.now()
	offline := device.OfflineSince(now)
	if offline > r.opts.OfflineThreshold {
		since := now.Add(-offline)
		reason := fmt.Sprintf("device %q has been offline since %s", device.Name, humanize.RelTime(since, now, "ago", "from now"))
		return r.finish(ctx, b, domainBroadcast.StatusFailed, reason)
	}
	logrus.Infof("[BROADCAST] Device %s offline for %s, broadcast %s retried on a later tick", device.ID, offline.Round(time.Second), b.ID)
	return r.repo.Requeue(ctx, b.ID)
}

func (r *BroadcastRunner) send(ctx context.Context, b domainBroadcast.Broadcast) error {
	recipients, err := r.repo.PendingRecipients(ctx, b.ID)
	if err != nil {
		_ = r.repo.Requeue(ctx, b.ID)
		return err
	}
	logrus.Infof("[BROADCAST] Sending %s to %d recipient(s)", b.ID, len(recipients))

	for i := range recipients {
		if i > 0 {
			if err := r.sleep(ctx, r.opts.MessageDelay); err != nil {
				// shutdown: leave the rest pending, Recover resumes on next boot
				return err
			}
			if status, err := r.repo.CurrentStatus(ctx, b.ID); err == nil && status != domainBroadcast.StatusProcessing {
				logrus.Infof("[BROADCAST] Broadcast %s is %s, stopping after %d of %d", b.ID, status, i, len(recipients))
				b.Status = status
				r.publish(b, realtime.EventBroadcastCompleted, string(status))
				return nil
			}
		}

		rec := recipients[i]
		sendCtx, cancel := context.WithTimeout(ctx, r.opts.SendTimeout)
		msgID, sendErr := r.sender.SendText(sendCtx, b.DeviceID, rec.Phone, b.Message)
		cancel()

		now := r.now()
		rec.SentAt = &now
		if sendErr != nil {
			rec.Status = domainBroadcast.RecipientFailed
			rec.Error = sendErr.Error()
			b.FailedCount++
		} else {
			rec.Status = domainBroadcast.RecipientSent
			rec.MessageID = msgID
			b.SentCount++
		}
		if err := r.repo.MarkRecipient(ctx, &rec); err != nil {
			logrus.WithError(err).Warnf("[BROADCAST] Failed to record recipient %s", rec.ID)
		}
		r.publish(b, realtime.EventBroadcastProgress, "")
	}

	if b.SentCount == 0 && b.FailedCount > 0 {
		return r.finish(ctx, b, domainBroadcast.StatusFailed, "every recipient failed")
	}
	return r.finish(ctx, b, domainBroadcast.StatusCompleted, "")
}

func (r *BroadcastRunner) finish(ctx context.Context, b domainBroadcast.Broadcast, status domainBroadcast.Status, reason string) error {
	if err := r.repo.Finish(ctx, b.ID, status, reason, r.now()); err != nil {
		return err
	}
	b.Status = status
	if stored, err := r.repo.GetByID(ctx, b.ID); err == nil {
		b = *stored
	}
	r.publish(b, realtime.EventBroadcastCompleted, reason)
	logrus.WithFields(logrus.Fields{
		"broadcast_id": b.ID,
		"status":       status,
		"sent":         b.SentCount,
		"failed":       b.FailedCount,
		"reason":       reason,
	}).Info("[BROADCAST] Broadcast finished")
	return nil
}

func (r *BroadcastRunner) publish(b domainBroadcast.Broadcast, event, reason string) {
	r.publisher.PublishToUser(b.UserID, event, domainBroadcast.Progress{
		BroadcastID: b.ID,
		Status:      b.Status,
		Total:       b.TotalRecipients,
		Sent:        b.SentCount,
		Failed:      b.FailedCount,
		Reason:      reason,
	})
}
