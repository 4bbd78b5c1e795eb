package repository

import (
	"context"
	"errors"

	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeviceGormRepository struct {
	db *gorm.DB
}

var _ domainDevice.IDeviceRepository = (*DeviceGormRepository)(nil)

func NewDeviceGormRepository(db *gorm.DB) *DeviceGormRepository {
	return &DeviceGormRepository{db: db}
}

func (r *DeviceGormRepository) Create(ctx context.Context, d *domainDevice.Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = domainDevice.StatusDisconnected
	}
	now := utcNow()
	d.CreatedAt, d.UpdatedAt = now, now
	m := toDeviceModel(*d)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *DeviceGormRepository) GetByID(ctx context.Context, id string) (*domainDevice.Device, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *DeviceGormRepository) GetForUser(ctx context.Context, userID, id string) (*domainDevice.Device, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *DeviceGormRepository) first(ctx context.Context, query string, args ...any) (*domainDevice.Device, error) {
	var m deviceModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainDevice.ErrDeviceNotFound
		}
		return nil, err
	}
	d := fromDeviceModel(m)
	return &d, nil
}

func (r *DeviceGormRepository) List(ctx context.Context, userID string, page utils.PageRequest) ([]domainDevice.Device, int64, error) {
	q := r.db.WithContext(ctx).Model(&deviceModel{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []deviceModel
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domainDevice.Device, len(models))
	for i, m := range models {
		out[i] = fromDeviceModel(m)
	}
	return out, total, nil
}

func (r *DeviceGormRepository) Update(ctx context.Context, d *domainDevice.Device) error {
	d.UpdatedAt = utcNow()
	res := r.db.WithContext(ctx).Model(&deviceModel{}).Where("id = ?", d.ID).Updates(map[string]any{
		"name":        d.Name,
		"panel_id":    nullString(d.PanelID),
		"bot_enabled": d.BotEnabled,
		"updated_at":  d.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&deviceModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceGormRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&deviceModel{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// UpdateSessionState records a session transition. disconnected_at keeps the
// first moment of an outage so repeated disconnects do not reset the clock.
func (r *DeviceGormRepository) UpdateSessionState(ctx context.Context, id string, state domainDevice.SessionState) error {
	at := state.At
	if at.IsZero() {
		at = utcNow()
	}
	updates := map[string]any{
		"status":     string(state.Status),
		"updated_at": at,
	}
	if state.JID != "" {
		updates["jid"] = state.JID
	}
	if state.Phone != "" {
		updates["phone"] = state.Phone
	}
	switch state.Status {
	case domainDevice.StatusConnected:
		updates["last_connected_at"] = at
		updates["disconnected_at"] = nil
	case domainDevice.StatusDisconnected:
		updates["disconnected_at"] = gorm.Expr("COALESCE(disconnected_at, ?)", at)
	}

	res := r.db.WithContext(ctx).Model(&deviceModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceGormRepository) ListRestorable(ctx context.Context) ([]domainDevice.Device, error) {
	var models []deviceModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domainDevice.Device, len(models))
	for i, m := range models {
		out[i] = fromDeviceModel(m)
	}
	return out, nil
}

func (r *DeviceGormRepository) IncrementCounters(ctx context.Context, id string, sent, received int64) error {
	updates := map[string]any{}
	if sent != 0 {
		updates["messages_sent"] = gorm.Expr("messages_sent + ?", sent)
	}
	if received != 0 {
		updates["messages_received"] = gorm.Expr("messages_received + ?", received)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&deviceModel{}).Where("id = ?", id).UpdateColumns(updates).Error
}

// JIDFor returns the paired JID of a device, empty when it never paired.
func (r *DeviceGormRepository) JIDFor(ctx context.Context, id string) (string, error) {
	var jid string
	err := r.db.WithContext(ctx).Model(&deviceModel{}).Where("id = ?", id).Pluck("jid", &jid).Error
	return jid, err
}

func toDeviceModel(d domainDevice.Device) deviceModel {
	return deviceModel{
		ID:               d.ID,
		UserID:           d.UserID,
		Name:             d.Name,
		Phone:            d.Phone,
		JID:              d.JID,
		Status:           string(d.Status),
		PanelID:          nullString(d.PanelID),
		BotEnabled:       d.BotEnabled,
		LastConnectedAt:  d.LastConnectedAt,
		DisconnectedAt:   d.DisconnectedAt,
		MessagesSent:     d.MessagesSent,
		MessagesReceived: d.MessagesReceived,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func fromDeviceModel(m deviceModel) domainDevice.Device {
	return domainDevice.Device{
		ID:               m.ID,
		UserID:           m.UserID,
		Name:             m.Name,
		Phone:            m.Phone,
		JID:              m.JID,
		Status:           domainDevice.Status(m.Status),
		PanelID:          m.PanelID.String,
		BotEnabled:       m.BotEnabled,
		LastConnectedAt:  m.LastConnectedAt,
		DisconnectedAt:   m.DisconnectedAt,
		MessagesSent:     m.MessagesSent,
		MessagesReceived: m.MessagesReceived,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
