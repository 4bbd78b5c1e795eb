package usecase

import (
	"context"
	"fmt"
	"time"

	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	"github.com/sirupsen/logrus"
)

// PanelProber refreshes one panel and reports whether it answered.
type PanelProber interface {
	Probe(ctx context.Context, id string) error
}

var _ domainHealth.IHealthUsecase = (*HealthService)(nil)

// HealthService records reachability of panels and devices.
type HealthService struct {
	repo     domainHealth.IHealthRepository
	panels   domainPanel.IPanelRepository
	devices  domainDevice.IDeviceRepository
	sessions SessionManager
	prober   PanelProber
	now      func() time.Time
}

func NewHealthService(
	repo domainHealth.IHealthRepository,
	panels domainPanel.IPanelRepository,
	devices domainDevice.IDeviceRepository,
	sessions SessionManager,
) *HealthService {
	return &HealthService{
		repo:     repo,
		panels:   panels,
		devices:  devices,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetPanelProber completes the wiring once the panel service exists; the panel
// service itself reports into this one.
func (s *HealthService) SetPanelProber(p PanelProber) {
	s.prober = p
}

func (s *HealthService) CheckPanel(ctx context.Context, id string) (domainHealth.HealthRecord, error) {
	if s.prober == nil {
		return domainHealth.HealthRecord{}, fmt.Errorf("panel prober not configured")
	}
	// Probe reports the outcome itself
	if err := s.prober.Probe(ctx, id); err != nil {
		logrus.WithError(err).Debugf("[HEALTH] Panel %s check failed", id)
	}
	rec, err := s.repo.Get(ctx, domainHealth.EntityPanel, id)
	if err != nil {
		return domainHealth.HealthRecord{}, err
	}
	return *rec, nil
}

func (s *HealthService) CheckDevice(ctx context.Context, id string) (domainHealth.HealthRecord, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return domainHealth.HealthRecord{}, err
	}
	info := s.sessions.GetSessionStatus(id)
	rec := &domainHealth.HealthRecord{
		EntityType:  domainHealth.EntityDevice,
		EntityID:    id,
		LastChecked: s.now(),
	}
	switch {
	case info.Status == domainDevice.StatusConnected:
		rec.Status = domainHealth.StatusOk
		rec.LastMessage = "connected"
	case info.Active:
		rec.Status = domainHealth.StatusError
		rec.LastMessage = "session " + string(info.Status)
	default:
		rec.Status = domainHealth.StatusError
		rec.LastMessage = "no live session, last known " + string(d.Status)
	}
	if info.Reason != "" && rec.Status != domainHealth.StatusOk {
		rec.LastMessage += ": " + info.Reason
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return domainHealth.HealthRecord{}, err
	}
	return *rec, nil
}

func (s *HealthService) CheckAll(ctx context.Context) ([]domainHealth.HealthRecord, error) {
	panels, err := s.panels.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range panels {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, err := s.CheckPanel(ctx, p.ID); err != nil {
			logrus.WithError(err).Warnf("[HEALTH] Panel %s", p.ID)
		}
	}

	devices, err := s.devices.ListRestorable(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if _, err := s.CheckDevice(ctx, d.ID); err != nil {
			logrus.WithError(err).Warnf("[HEALTH] Device %s", d.ID)
		}
	}
	return s.repo.List(ctx)
}

func (s *HealthService) GetStatus(ctx context.Context) ([]domainHealth.HealthRecord, error) {
	return s.repo.List(ctx)
}

func (s *HealthService) ReportFailure(ctx context.Context, entityType domainHealth.EntityType, entityID, message string) {
	s.report(ctx, entityType, entityID, domainHealth.StatusError, message)
}

func (s *HealthService) ReportSuccess(ctx context.Context, entityType domainHealth.EntityType, entityID string) {
	s.report(ctx, entityType, entityID, domainHealth.StatusOk, "ok")
}

func (s *HealthService) report(ctx context.Context, entityType domainHealth.EntityType, entityID string, status domainHealth.Status, message string) {
	rec := &domainHealth.HealthRecord{
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      status,
		LastMessage: message,
		LastChecked: s.now(),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		logrus.WithError(err).Warnf("[HEALTH] Failed to record %s %s", entityType, entityID)
	}
}
