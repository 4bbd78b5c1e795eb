package usecase

import (
	"context"
	"strings"
	"time"

	domainBroadcast "github.com/mahalbangetid-beep/scb-sub003/domains/broadcast"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/validations"
	"github.com/sirupsen/logrus"
)

type serviceBroadcast struct {
	repo          domainBroadcast.IBroadcastRepository
	devices       domainDevice.IDeviceRepository
	defaultRegion string
	now           func() time.Time
}

func NewBroadcastService(repo domainBroadcast.IBroadcastRepository, devices domainDevice.IDeviceRepository, defaultRegion string) domainBroadcast.IBroadcastUsecase {
	return &serviceBroadcast{
		repo:          repo,
		devices:       devices,
		defaultRegion: defaultRegion,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *serviceBroadcast) Create(ctx context.Context, userID string, req domainBroadcast.CreateBroadcastRequest) (domainBroadcast.CreateBroadcastResponse, error) {
	if err := validations.ValidateCreateBroadcast(ctx, req); err != nil {
		return domainBroadcast.CreateBroadcastResponse{}, err
	}
	if _, err := s.devices.GetForUser(ctx, userID, req.DeviceID); err != nil {
		return domainBroadcast.CreateBroadcastResponse{}, err
	}

	valid, invalid := utils.NormalizeRecipients(req.Recipients, s.defaultRegion)
	if len(valid) == 0 {
		return domainBroadcast.CreateBroadcastResponse{}, domainBroadcast.ErrNoValidRecipients
	}

	scheduledAt := s.now()
	if req.ScheduledAt != nil && req.ScheduledAt.After(scheduledAt) {
		scheduledAt = req.ScheduledAt.UTC()
	}
	b := &domainBroadcast.Broadcast{
		UserID:      userID,
		DeviceID:    req.DeviceID,
		Name:        strings.TrimSpace(req.Name),
		Message:     req.Message,
		Status:      domainBroadcast.StatusScheduled,
		ScheduledAt: scheduledAt,
	}
	recipients := make([]domainBroadcast.Recipient, 0, len(valid))
	for _, phone := range valid {
		recipients = append(recipients, domainBroadcast.Recipient{Phone: phone, Status: domainBroadcast.RecipientPending})
	}
	if err := s.repo.Create(ctx, b, recipients); err != nil {
		return domainBroadcast.CreateBroadcastResponse{}, err
	}

	logrus.WithFields(logrus.Fields{
		"broadcast_id": b.ID,
		"recipients":   len(valid),
		"invalid":      len(invalid),
		"scheduled_at": b.ScheduledAt,
	}).Info("[BROADCAST] Broadcast scheduled")
	return domainBroadcast.CreateBroadcastResponse{Broadcast: *b, InvalidRecipients: invalid}, nil
}

func (s *serviceBroadcast) List(ctx context.Context, userID string, status domainBroadcast.Status, page utils.PageRequest) ([]domainBroadcast.Broadcast, int64, error) {
	return s.repo.List(ctx, userID, status, page)
}

func (s *serviceBroadcast) Get(ctx context.Context, userID, id string) (domainBroadcast.Broadcast, error) {
	b, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainBroadcast.Broadcast{}, err
	}
	return *b, nil
}

func (s *serviceBroadcast) Recipients(ctx context.Context, userID, id string, page utils.PageRequest) ([]domainBroadcast.Recipient, int64, error) {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return nil, 0, err
	}
	return s.repo.ListRecipients(ctx, id, page)
}

// Cancel stops a scheduled broadcast, or a running one before its next
// recipient. Finished broadcasts are not cancellable.
func (s *serviceBroadcast) Cancel(ctx context.Context, userID, id string) (domainBroadcast.Broadcast, error) {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return domainBroadcast.Broadcast{}, err
	}
	ok, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return domainBroadcast.Broadcast{}, err
	}
	if !ok {
		return domainBroadcast.Broadcast{}, domainBroadcast.ErrNotCancellable
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainBroadcast.Broadcast{}, err
	}
	return *b, nil
}
