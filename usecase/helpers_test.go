package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mahalbangetid-beep/scb-sub003/core/database"
	domainAudit "github.com/mahalbangetid-beep/scb-sub003/domains/audit"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/crypto"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var firstPage = utils.NewPageRequest(1, 20)

type env struct {
	db            *gorm.DB
	users         *repository.UserGormRepository
	devices       *repository.DeviceGormRepository
	rules         *repository.AutoReplyGormRepository
	panels        *repository.PanelGormRepository
	broadcasts    *repository.BroadcastGormRepository
	walletRepo    *repository.WalletGormRepository
	subscriptions *repository.SubscriptionGormRepository
	fonepay       *repository.FonepayGormRepository
	audit         *repository.AuditGormRepository
	health        *repository.HealthGormRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(context.Background(), db))
	t.Cleanup(func() { _ = database.Close(db) })
	return &env{
		db:            db,
		users:         repository.NewUserGormRepository(db),
		devices:       repository.NewDeviceGormRepository(db),
		rules:         repository.NewAutoReplyGormRepository(db),
		panels:        repository.NewPanelGormRepository(db),
		broadcasts:    repository.NewBroadcastGormRepository(db),
		walletRepo:    repository.NewWalletGormRepository(db, "NPR"),
		subscriptions: repository.NewSubscriptionGormRepository(db),
		fonepay:       repository.NewFonepayGormRepository(db),
		audit:         repository.NewAuditGormRepository(db),
		health:        repository.NewHealthGormRepository(db),
	}
}

func (e *env) user(t *testing.T, email string) string {
	t.Helper()
	u := &domainUser.User{Name: "Test", Email: email, PasswordHash: "x", Role: domainUser.RoleUser, IsActive: true}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.ID
}

func (e *env) device(t *testing.T, userID string, mutate func(*domainDevice.Device)) *domainDevice.Device {
	t.Helper()
	d := &domainDevice.Device{UserID: userID, Name: "Phone", Status: domainDevice.StatusDisconnected, BotEnabled: true}
	if mutate != nil {
		mutate(d)
	}
	require.NoError(t, e.devices.Create(context.Background(), d))
	return d
}

func (e *env) hook(wallet *recordingWallet, freeDevices int) domainSubscription.IResourceHook {
	return NewResourceHook(
		e.subscriptions,
		wallet,
		map[domainSubscription.ResourceType]domainSubscription.Plan{
			domainSubscription.ResourceDevice: {FreeQuota: freeDevices, Price: 500},
			domainSubscription.ResourcePanel:  {FreeQuota: 1, Price: 300},
		},
		map[domainSubscription.ResourceType]domainSubscription.ResourceCounter{
			domainSubscription.ResourceDevice: e.devices.CountByUser,
			domainSubscription.ResourcePanel:  e.panels.CountByUser,
		},
		30,
	)
}

// recordingWallet is the real wallet service with captured realtime events.
type recordingWallet struct {
	*serviceWallet
	events *capturePublisher
}

func (e *env) wallet() *recordingWallet {
	pub := &capturePublisher{}
	return &recordingWallet{
		serviceWallet: NewWalletService(e.walletRepo, pub).(*serviceWallet),
		events:        pub,
	}
}

type published struct {
	UserID  string
	Event   string
	Payload any
}

type capturePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *capturePublisher) PublishToUser(userID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{UserID: userID, Event: event, Payload: payload})
}

func (p *capturePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type sentMessage struct {
	DeviceID string
	To       string
	Text     string
}

// fakeSessions stands in for the session manager.
type fakeSessions struct {
	mu       sync.Mutex
	status   map[string]domainDevice.SessionInfo
	sent     []sentMessage
	deleted  []string
	sendErr  error
	created  []string
	restarts []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{status: map[string]domainDevice.SessionInfo{}}
}

func (f *fakeSessions) CreateSession(_ context.Context, deviceID, userID string) (domainDevice.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, deviceID)
	info := domainDevice.SessionInfo{DeviceID: deviceID, UserID: userID, Status: domainDevice.StatusQR, QRCode: "data:image/png;base64,AAA", Active: true}
	f.status[deviceID] = info
	return info, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, deviceID)
	delete(f.status, deviceID)
	return nil
}

func (f *fakeSessions) RestartSession(_ context.Context, deviceID, userID string) (domainDevice.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts = append(f.restarts, deviceID)
	info := domainDevice.SessionInfo{DeviceID: deviceID, UserID: userID, Status: domainDevice.StatusPending, Active: true}
	f.status[deviceID] = info
	return info, nil
}

func (f *fakeSessions) GetSessionStatus(deviceID string) domainDevice.SessionInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.status[deviceID]; ok {
		return info
	}
	return domainDevice.SessionInfo{DeviceID: deviceID, Status: domainDevice.StatusDisconnected}
}

func (f *fakeSessions) IsConnected(deviceID string) bool {
	return f.GetSessionStatus(deviceID).Status == domainDevice.StatusConnected
}

func (f *fakeSessions) SendText(_ context.Context, deviceID, to, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, sentMessage{DeviceID: deviceID, To: to, Text: text})
	return fmt.Sprintf("MSG%d", len(f.sent)), nil
}

func (f *fakeSessions) setConnected(deviceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[deviceID] = domainDevice.SessionInfo{DeviceID: deviceID, Status: domainDevice.StatusConnected, Active: true}
}

func (f *fakeSessions) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// fakePanelClient answers like a panel holding the given orders.
type fakePanelClient struct {
	apiKey   string
	balance  float64
	orders   map[string]domainPanel.OrderStatus
	failWith error
}

func (c *fakePanelClient) Balance(context.Context) (domainPanel.Balance, error) {
	if c.failWith != nil {
		return domainPanel.Balance{}, c.failWith
	}
	return domainPanel.Balance{Balance: c.balance, Currency: "USD"}, nil
}

func (c *fakePanelClient) OrderStatus(_ context.Context, ids []string) ([]domainPanel.OrderStatus, error) {
	if c.failWith != nil {
		return nil, c.failWith
	}
	out := make([]domainPanel.OrderStatus, 0, len(ids))
	for _, id := range ids {
		st, ok := c.orders[id]
		if !ok {
			st = domainPanel.OrderStatus{Error: "Incorrect order ID"}
		}
		st.OrderID = id
		out = append(out, st)
	}
	return out, nil
}

func (c *fakePanelClient) Refill(_ context.Context, ids []string) ([]domainPanel.ActionResult, error) {
	out := make([]domainPanel.ActionResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domainPanel.ActionResult{OrderID: id, Ref: "77"})
	}
	return out, nil
}

func (c *fakePanelClient) Cancel(_ context.Context, ids []string) ([]domainPanel.ActionResult, error) {
	out := make([]domainPanel.ActionResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domainPanel.ActionResult{OrderID: id, Error: "Cancel not available"})
	}
	return out, nil
}

func (c *fakePanelClient) Services(context.Context) ([]domainPanel.Service, error) {
	if c.failWith != nil {
		return nil, c.failWith
	}
	return []domainPanel.Service{{ID: "1", Name: "Followers", Rate: 0.9, Min: 50, Max: 10000}}, nil
}

// panelFactory hands out one shared fake and records the keys it was built with.
func panelFactory(client *fakePanelClient) domainPanel.ClientFactory {
	return func(_ string, apiKey string) domainPanel.IPanelClient {
		client.apiKey = apiKey
		return client
	}
}

func testCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	c, err := crypto.NewCipher("unit-test-secret")
	require.NoError(t, err)
	return c
}

type memorySink struct {
	mu      sync.Mutex
	entries []domainAudit.Entry
}

func (s *memorySink) Write(e domainAudit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}
