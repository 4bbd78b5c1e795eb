package usecase

import (
	"context"
	"errors"
	"strings"

	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/validations"
	"github.com/sirupsen/logrus"
)

type serviceDevice struct {
	repo          domainDevice.IDeviceRepository
	panels        domainPanel.IPanelRepository
	sessions      SessionManager
	hook          domainSubscription.IResourceHook
	health        domainHealth.IHealthRepository
	defaultRegion string
}

func NewDeviceService(
	repo domainDevice.IDeviceRepository,
	panels domainPanel.IPanelRepository,
	sessions SessionManager,
	hook domainSubscription.IResourceHook,
	health domainHealth.IHealthRepository,
	defaultRegion string,
) domainDevice.IDeviceUsecase {
	return &serviceDevice{
		repo:          repo,
		panels:        panels,
		sessions:      sessions,
		hook:          hook,
		health:        health,
		defaultRegion: defaultRegion,
	}
}

func (s *serviceDevice) Create(ctx context.Context, userID string, req domainDevice.CreateDeviceRequest) (domainDevice.Device, error) {
	if err := validations.ValidateCreateDevice(ctx, req); err != nil {
		return domainDevice.Device{}, err
	}
	if err := s.checkPanel(ctx, userID, req.PanelID); err != nil {
		return domainDevice.Device{}, err
	}

	charge, err := s.hook.Reserve(ctx, userID, domainSubscription.ResourceDevice)
	if err != nil {
		return domainDevice.Device{}, err
	}

	d := &domainDevice.Device{
		UserID:     userID,
		Name:       strings.TrimSpace(req.Name),
		Status:     domainDevice.StatusDisconnected,
		PanelID:    req.PanelID,
		BotEnabled: true,
	}
	if req.BotEnabled != nil {
		d.BotEnabled = *req.BotEnabled
	}
	if err := s.repo.Create(ctx, d); err != nil {
		_ = s.hook.Release(ctx, charge)
		return domainDevice.Device{}, err
	}
	if err := s.hook.Bind(ctx, charge, d.ID); err != nil {
		if delErr := s.repo.Delete(ctx, d.ID); delErr != nil {
			logrus.WithError(delErr).Errorf("[DEVICE] Failed to roll back device %s", d.ID)
		}
		_ = s.hook.Release(ctx, charge)
		return domainDevice.Device{}, err
	}

	logrus.WithFields(logrus.Fields{"user_id": userID, "device_id": d.ID, "free": charge.Free}).Info("[DEVICE] Device created")
	return *d, nil
}

func (s *serviceDevice) checkPanel(ctx context.Context, userID, panelID string) error {
	if panelID == "" {
		return nil
	}
	if _, err := s.panels.GetForUser(ctx, userID, panelID); err != nil {
		if errors.Is(err, domainPanel.ErrPanelNotFound) {
			return pkgError.ValidationError("panel_id: panel not found")
		}
		return err
	}
	return nil
}

func (s *serviceDevice) List(ctx context.Context, userID string, page utils.PageRequest) ([]domainDevice.Device, int64, error) {
	devices, total, err := s.repo.List(ctx, userID, page)
	if err != nil {
		return nil, 0, err
	}
	// the live session is more recent than the persisted status
	for i := range devices {
		if info := s.sessions.GetSessionStatus(devices[i].ID); info.Active {
			devices[i].Status = info.Status
		}
	}
	return devices, total, nil
}

func (s *serviceDevice) Get(ctx context.Context, userID, id string) (domainDevice.DeviceDetail, error) {
	d, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainDevice.DeviceDetail{}, err
	}
	info := s.sessions.GetSessionStatus(id)
	if info.Active {
		d.Status = info.Status
	}
	return domainDevice.DeviceDetail{Device: *d, Session: info}, nil
}

func (s *serviceDevice) Update(ctx context.Context, userID, id string, req domainDevice.UpdateDeviceRequest) (domainDevice.Device, error) {
	if err := validations.ValidateUpdateDevice(ctx, req); err != nil {
		return domainDevice.Device{}, err
	}
	d, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainDevice.Device{}, err
	}
	if req.Name != nil {
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.PanelID != nil {
		if err := s.checkPanel(ctx, userID, *req.PanelID); err != nil {
			return domainDevice.Device{}, err
		}
		d.PanelID = *req.PanelID
	}
	if req.BotEnabled != nil {
		d.BotEnabled = *req.BotEnabled
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return domainDevice.Device{}, err
	}
	return *d, nil
}

func (s *serviceDevice) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return err
	}
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return err
	}
	if err := s.hook.Cancel(ctx, domainSubscription.ResourceDevice, id); err != nil {
		logrus.WithError(err).Warnf("[DEVICE] Failed to cancel subscription of device %s", id)
	}
	if s.health != nil {
		_ = s.health.Delete(ctx, domainHealth.EntityDevice, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "device_id": id}).Info("[DEVICE] Device deleted")
	return nil
}

func (s *serviceDevice) Connect(ctx context.Context, userID, id string) (domainDevice.SessionInfo, error) {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return domainDevice.SessionInfo{}, err
	}
	return s.sessions.CreateSession(ctx, id, userID)
}

func (s *serviceDevice) Restart(ctx context.Context, userID, id string) (domainDevice.SessionInfo, error) {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return domainDevice.SessionInfo{}, err
	}
	return s.sessions.RestartSession(ctx, id, userID)
}

func (s *serviceDevice) Status(ctx context.Context, userID, id string) (domainDevice.SessionInfo, error) {
	d, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainDevice.SessionInfo{}, err
	}
	info := s.sessions.GetSessionStatus(id)
	if !info.Active {
		info.Status = d.Status
		info.Phone = d.Phone
	}
	return info, nil
}

// Logout unlinks the device from WhatsApp and keeps the device row.
func (s *serviceDevice) Logout(ctx context.Context, userID, id string) error {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return err
	}
	return s.sessions.DeleteSession(ctx, id)
}

func (s *serviceDevice) SendMessage(ctx context.Context, userID, id string, req domainDevice.SendMessageRequest) (domainDevice.SendMessageResponse, error) {
	if err := validations.ValidateSendMessage(ctx, req); err != nil {
		return domainDevice.SendMessageResponse{}, err
	}
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return domainDevice.SendMessageResponse{}, err
	}

	to := req.To
	if !strings.Contains(to, "@") {
		phone, err := utils.NormalizePhone(to, s.defaultRegion)
		if err != nil {
			return domainDevice.SendMessageResponse{}, pkgError.ValidationError("to: must be a valid phone number")
		}
		to = phone
	}

	msgID, err := s.sessions.SendText(ctx, id, to, req.Message)
	if err != nil {
		return domainDevice.SendMessageResponse{}, err
	}
	return domainDevice.SendMessageResponse{MessageID: msgID, To: to}, nil
}
