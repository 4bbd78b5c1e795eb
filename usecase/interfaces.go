package usecase

import (
	"context"

	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
)

// SessionManager is the part of sessions.Manager the services depend on.
type SessionManager interface {
	CreateSession(ctx context.Context, deviceID, userID string) (domainDevice.SessionInfo, error)
	DeleteSession(ctx context.Context, deviceID string) error
	RestartSession(ctx context.Context, deviceID, userID string) (domainDevice.SessionInfo, error)
	GetSessionStatus(deviceID string) domainDevice.SessionInfo
	IsConnected(deviceID string) bool
	SendText(ctx context.Context, deviceID, to, text string) (string, error)
}

// MessageSender delivers a text through a device.
type MessageSender interface {
	SendText(ctx context.Context, deviceID, to, text string) (string, error)
}
