package usecase

import (
	"context"
	"testing"
	"time"

	domainBroadcast "github.com/mahalbangetid-beep/scb-sub003/domains/broadcast"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastCreateNormalizesRecipients(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := NewBroadcastService(e.broadcasts, e.devices, "NP")
	owner := e.user(t, "b@example.com")
	d := e.device(t, owner, nil)

	future := time.Now().Add(2 * time.Hour)
	res, err := svc.Create(ctx, owner, domainBroadcast.CreateBroadcastRequest{
		DeviceID:    d.ID,
		Name:        "Promo",
		Message:     "Dashain offer",
		Recipients:  []string{"9841234567", "+977 984-1234567", "not-a-number", "9779801234567"},
		ScheduledAt: &future,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Broadcast.TotalRecipients)
	assert.Equal(t, []string{"not-a-number"}, res.InvalidRecipients)
	assert.Equal(t, domainBroadcast.StatusScheduled, res.Broadcast.Status)
	assert.WithinDuration(t, future, res.Broadcast.ScheduledAt, time.Second)

	recipients, total, err := svc.Recipients(ctx, owner, res.Broadcast.ID, firstPage)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "9779841234567", recipients[0].Phone)
}

func TestBroadcastCreateRejectsEmptyAndForeignDevice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := NewBroadcastService(e.broadcasts, e.devices, "NP")
	owner := e.user(t, "o@example.com")
	other := e.user(t, "x@example.com")
	d := e.device(t, owner, nil)

	_, err := svc.Create(ctx, owner, domainBroadcast.CreateBroadcastRequest{DeviceID: d.ID, Name: "n", Message: "m", Recipients: []string{"abc"}})
	assert.ErrorIs(t, err, domainBroadcast.ErrNoValidRecipients)

	_, err = svc.Create(ctx, other, domainBroadcast.CreateBroadcastRequest{DeviceID: d.ID, Name: "n", Message: "m", Recipients: []string{"9841234567"}})
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)
}

func TestBroadcastCancel(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := NewBroadcastService(e.broadcasts, e.devices, "NP")
	owner := e.user(t, "c@example.com")
	d := e.device(t, owner, nil)

	res, err := svc.Create(ctx, owner, domainBroadcast.CreateBroadcastRequest{DeviceID: d.ID, Name: "n", Message: "m", Recipients: []string{"9841234567"}})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, owner, res.Broadcast.ID)
	require.NoError(t, err)
	assert.Equal(t, domainBroadcast.StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, owner, res.Broadcast.ID)
	assert.ErrorIs(t, err, domainBroadcast.ErrNotCancellable)

	list, total, err := svc.List(ctx, owner, domainBroadcast.StatusCancelled, firstPage)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, res.Broadcast.ID, list[0].ID)
}
