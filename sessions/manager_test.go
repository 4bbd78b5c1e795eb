package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	"github.com/mahalbangetid-beep/scb-sub003/domains/realtime"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/msgworker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu           sync.Mutex
	connected    bool
	loggedIn     bool
	connectErr   error
	sent         []string
	disconnects  int
	closed       bool
	logoutCalled bool
}

func (c *fakeConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.disconnects++
	c.mu.Unlock()
}

func (c *fakeConn) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.logoutCalled = true
	c.loggedIn = false
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

func (c *fakeConn) SendText(ctx context.Context, to, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, to+":"+text)
	return "MSG-" + to, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeFactory struct {
	mu        sync.Mutex
	conns     map[string][]*fakeConn
	handlers  map[string]func(Event)
	stored    map[string]bool
	purged    []string
	openErr   error
	nextConn  func() *fakeConn
	openCount int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		conns:    make(map[string][]*fakeConn),
		handlers: make(map[string]func(Event)),
		stored:   make(map[string]bool),
	}
}

func (f *fakeFactory) Open(ctx context.Context, deviceID string, handler func(Event)) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.openCount++
	conn := &fakeConn{loggedIn: f.stored[deviceID]}
	if f.nextConn != nil {
		conn = f.nextConn()
	}
	f.conns[deviceID] = append(f.conns[deviceID], conn)
	f.handlers[deviceID] = handler
	return conn, nil
}

func (f *fakeFactory) HasSession(deviceID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored[deviceID]
}

func (f *fakeFactory) Purge(deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, deviceID)
	f.purged = append(f.purged, deviceID)
	return nil
}

func (f *fakeFactory) emit(deviceID string, evt Event) {
	f.mu.Lock()
	h := f.handlers[deviceID]
	f.mu.Unlock()
	h(evt)
}

func (f *fakeFactory) lastConn(deviceID string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.conns[deviceID]
	return list[len(list)-1]
}

func (f *fakeFactory) purgedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.purged...)
}

type fakeStore struct {
	mu       sync.Mutex
	states   map[string][]domainDevice.SessionState
	devices  []domainDevice.Device
	sent     map[string]int64
	received map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:   make(map[string][]domainDevice.SessionState),
		sent:     make(map[string]int64),
		received: make(map[string]int64),
	}
}

func (s *fakeStore) UpdateSessionState(ctx context.Context, id string, state domainDevice.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = append(s.states[id], state)
	return nil
}

func (s *fakeStore) ListRestorable(ctx context.Context) ([]domainDevice.Device, error) {
	return s.devices, nil
}

func (s *fakeStore) IncrementCounters(ctx context.Context, id string, sent, received int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] += sent
	s.received[id] += received
	return nil
}

func (s *fakeStore) statuses(id string) []domainDevice.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domainDevice.Status, 0, len(s.states[id]))
	for _, st := range s.states[id] {
		out = append(out, st.Status)
	}
	return out
}

type published struct {
	userID  string
	event   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) PublishToUser(userID, event string, payload any) {
	p.mu.Lock()
	p.events = append(p.events, published{userID, event, payload})
	p.mu.Unlock()
}

func (p *fakePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T, maxQR int) (*Manager, *fakeFactory, *fakeStore, *fakePublisher) {
	t.Helper()
	factory := newFakeFactory()
	store := newFakeStore()
	pub := &fakePublisher{}
	m := NewManager(factory, store, pub, Options{MaxQRAttempts: maxQR})
	return m, factory, store, pub
}

func TestCreateSession_QRThenConnected(t *testing.T) {
	m, factory, store, pub := newTestManager(t, 5)
	ctx := context.Background()

	info, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, domainDevice.StatusPending, info.Status)
	assert.True(t, info.Active)

	factory.emit("dev-1", Event{Kind: EventQR, QRCode: "2@abc", QRImage: "data:image/png;base64,AAA"})
	info = m.GetSessionStatus("dev-1")
	assert.Equal(t, domainDevice.StatusQR, info.Status)
	assert.Equal(t, "data:image/png;base64,AAA", info.QRCode)
	assert.Equal(t, 1, info.QRAttempts)
	assert.Equal(t, 1, pub.count(realtime.EventDeviceQR))

	factory.emit("dev-1", Event{Kind: EventConnected, JID: "9779841234567:3@s.whatsapp.net", Phone: "9779841234567"})
	info = m.GetSessionStatus("dev-1")
	assert.Equal(t, domainDevice.StatusConnected, info.Status)
	assert.Empty(t, info.QRCode)
	assert.Equal(t, "9779841234567", info.Phone)
	assert.True(t, m.IsConnected("dev-1"))

	assert.Equal(t, []domainDevice.Status{
		domainDevice.StatusPending,
		domainDevice.StatusQR,
		domainDevice.StatusConnected,
	}, store.statuses("dev-1"))
	assert.Equal(t, 3, pub.count(realtime.EventDeviceStatus))
}

func TestCreateSession_IdempotentWhileLive(t *testing.T) {
	m, factory, _, _ := newTestManager(t, 5)
	ctx := context.Background()

	_, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	factory.emit("dev-1", Event{Kind: EventConnected, Phone: "9779841234567"})

	info, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, domainDevice.StatusConnected, info.Status)
	assert.Equal(t, 1, factory.openCount)
}

func TestQRAttemptLimitStopsSession(t *testing.T) {
	m, factory, store, _ := newTestManager(t, 2)
	ctx := context.Background()

	_, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	conn := factory.lastConn("dev-1")

	factory.emit("dev-1", Event{Kind: EventQR, QRImage: "qr-1"})
	factory.emit("dev-1", Event{Kind: EventQR, QRImage: "qr-2"})
	factory.emit("dev-1", Event{Kind: EventQR, QRImage: "qr-3"})

	info := m.GetSessionStatus("dev-1")
	assert.Equal(t, domainDevice.StatusDisconnected, info.Status)
	assert.False(t, info.Active)
	assert.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)
	assert.Equal(t, domainDevice.StatusDisconnected, store.statuses("dev-1")[len(store.statuses("dev-1"))-1])

	// a stale event from the stopped connection is ignored
	factory.emit("dev-1", Event{Kind: EventConnected})
	assert.Equal(t, domainDevice.StatusDisconnected, m.GetSessionStatus("dev-1").Status)
}

func TestQRPairingErrorStopsSession(t *testing.T) {
	m, factory, _, pub := newTestManager(t, 5)
	ctx := context.Background()

	_, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	conn := factory.lastConn("dev-1")
	factory.emit("dev-1", Event{Kind: EventQR, QRImage: "qr-1"})
	factory.emit("dev-1", Event{Kind: EventQRTimeout, Reason: "err-client-outdated"})

	assert.Equal(t, domainDevice.StatusDisconnected, m.GetSessionStatus("dev-1").Status)
	assert.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	last := pub.events[len(pub.events)-1]
	pub.mu.Unlock()
	require.Equal(t, realtime.EventDeviceStatus, last.event)
	info := last.payload.(domainDevice.SessionInfo)
	assert.Equal(t, "err-client-outdated", info.Reason)
	assert.Empty(t, info.QRCode)
}

func TestTransientDisconnectKeepsSession(t *testing.T) {
	m, factory, store, _ := newTestManager(t, 5)
	ctx := context.Background()

	_, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	factory.emit("dev-1", Event{Kind: EventConnected})
	factory.emit("dev-1", Event{Kind: EventDisconnected, Reason: "stream error"})
	factory.emit("dev-1", Event{Kind: EventDisconnected, Reason: "stream error"})

	info := m.GetSessionStatus("dev-1")
	assert.Equal(t, domainDevice.StatusDisconnected, info.Status)
	assert.True(t, info.Active)
	assert.False(t, factory.lastConn("dev-1").isClosed())
	// the second disconnect is not a transition
	assert.Equal(t, []domainDevice.Status{
		domainDevice.StatusPending,
		domainDevice.StatusConnected,
		domainDevice.StatusDisconnected,
	}, store.statuses("dev-1"))

	factory.emit("dev-1", Event{Kind: EventConnected})
	assert.Equal(t, domainDevice.StatusConnected, m.GetSessionStatus("dev-1").Status)
}

func TestLoggedOutPurgesCredentials(t *testing.T) {
	m, factory, _, _ := newTestManager(t, 5)
	ctx := context.Background()
	factory.stored["dev-1"] = true

	_, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	factory.emit("dev-1", Event{Kind: EventConnected})
	factory.emit("dev-1", Event{Kind: EventLoggedOut, Reason: "401"})

	assert.False(t, m.GetSessionStatus("dev-1").Active)
	assert.Eventually(t, func() bool { return len(factory.purgedIDs()) == 1 }, time.Second, 10*time.Millisecond)
	assert.False(t, factory.HasSession("dev-1"))
}

func TestDeleteSessionLogsOutAndPurges(t *testing.T) {
	m, factory, store, pub := newTestManager(t, 5)
	ctx := context.Background()
	factory.stored["dev-1"] = true

	_, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	conn := factory.lastConn("dev-1")

	require.NoError(t, m.DeleteSession(ctx, "dev-1"))
	assert.True(t, conn.logoutCalled)
	assert.True(t, conn.isClosed())
	assert.Equal(t, []string{"dev-1"}, factory.purgedIDs())
	assert.Equal(t, domainDevice.StatusDisconnected, m.GetSessionStatus("dev-1").Status)
	assert.Equal(t, domainDevice.StatusDisconnected, store.statuses("dev-1")[len(store.statuses("dev-1"))-1])
	assert.GreaterOrEqual(t, pub.count(realtime.EventDeviceStatus), 2)

	// deleting an unknown session still purges stale files
	require.NoError(t, m.DeleteSession(ctx, "dev-2"))
	assert.Equal(t, []string{"dev-1", "dev-2"}, factory.purgedIDs())
}

func TestRestartSessionKeepsCredentials(t *testing.T) {
	m, factory, _, _ := newTestManager(t, 5)
	ctx := context.Background()
	factory.stored["dev-1"] = true

	_, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	factory.emit("dev-1", Event{Kind: EventConnected})
	first := factory.lastConn("dev-1")

	info, err := m.RestartSession(ctx, "dev-1", "")
	require.NoError(t, err)
	assert.Equal(t, domainDevice.StatusPending, info.Status)
	assert.Equal(t, "user-1", info.UserID)
	assert.True(t, first.isClosed())
	assert.False(t, first.logoutCalled)
	assert.Empty(t, factory.purgedIDs())
	assert.Equal(t, 2, factory.openCount)

	factory.emit("dev-1", Event{Kind: EventConnected})
	assert.Equal(t, domainDevice.StatusConnected, m.GetSessionStatus("dev-1").Status)
}

func TestCreateSessionFailures(t *testing.T) {
	m, factory, store, _ := newTestManager(t, 5)
	ctx := context.Background()

	factory.openErr = errors.New("store locked")
	info, err := m.CreateSession(ctx, "dev-1", "user-1")
	require.Error(t, err)
	assert.Equal(t, domainDevice.StatusDisconnected, info.Status)
	assert.Equal(t, ReasonOpenError, info.Reason)

	factory.openErr = nil
	factory.nextConn = func() *fakeConn { return &fakeConn{connectErr: errors.New("dial tcp: timeout")} }
	_, err = m.CreateSession(ctx, "dev-1", "user-1")
	require.Error(t, err)
	assert.False(t, m.GetSessionStatus("dev-1").Active)
	assert.True(t, factory.lastConn("dev-1").isClosed())
	assert.Equal(t, domainDevice.StatusDisconnected, store.statuses("dev-1")[len(store.statuses("dev-1"))-1])
}

func TestLoadExistingSessions(t *testing.T) {
	m, factory, store, _ := newTestManager(t, 5)
	factory.stored["dev-1"] = true
	store.devices = []domainDevice.Device{
		{ID: "dev-1", UserID: "user-1", Status: domainDevice.StatusConnected},
		{ID: "dev-2", UserID: "user-1", Status: domainDevice.StatusQR},
		{ID: "dev-3", UserID: "user-2", Status: domainDevice.StatusDisconnected},
	}

	restored, err := m.LoadExistingSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.True(t, m.GetSessionStatus("dev-1").Active)
	assert.False(t, m.GetSessionStatus("dev-2").Active)
	assert.Equal(t, []domainDevice.Status{domainDevice.StatusDisconnected}, store.statuses("dev-2"))
	assert.Empty(t, store.statuses("dev-3"))
}

func TestSendTextRequiresConnected(t *testing.T) {
	m, factory, store, _ := newTestManager(t, 5)
	ctx := context.Background()

	_, err := m.SendText(ctx, "dev-1", "9779841234567", "hi")
	assert.ErrorIs(t, err, ErrSessionNotConnected)

	_, err = m.CreateSession(ctx, "dev-1", "user-1")
	require.NoError(t, err)
	_, err = m.SendText(ctx, "dev-1", "9779841234567", "hi")
	assert.ErrorIs(t, err, ErrSessionNotConnected)

	factory.emit("dev-1", Event{Kind: EventConnected})
	id, err := m.SendText(ctx, "dev-1", "9779841234567", "hi")
	require.NoError(t, err)
	assert.Equal(t, "MSG-9779841234567", id)
	assert.Equal(t, int64(1), store.sent["dev-1"])
}

func TestInboundMessagesDispatchedInOrder(t *testing.T) {
	pool := msgworker.NewPool(2, 10)
	pool.Start(context.Background())

	factory := newFakeFactory()
	store := newFakeStore()
	pub := &fakePublisher{}
	m := NewManager(factory, store, pub, Options{Pool: pool})

	var mu sync.Mutex
	var texts []string
	m.SetInboundHandler(func(ctx context.Context, msg InboundMessage) error {
		mu.Lock()
		texts = append(texts, msg.UserID+"/"+msg.Text)
		mu.Unlock()
		return nil
	})

	_, err := m.CreateSession(context.Background(), "dev-1", "user-1")
	require.NoError(t, err)
	for _, text := range []string{"one", "two", "three"} {
		factory.emit("dev-1", Event{Kind: EventMessage, Message: &InboundMessage{ChatJID: "c1", Text: text}})
	}
	pool.Stop()

	assert.Equal(t, []string{"user-1/one", "user-1/two", "user-1/three"}, texts)
	assert.Equal(t, int64(3), store.received["dev-1"])
	assert.Equal(t, 3, pub.count(realtime.EventMessageReceived))
}

func TestShutdownClosesWithoutLogout(t *testing.T) {
	m, factory, _, _ := newTestManager(t, 5)
	_, err := m.CreateSession(context.Background(), "dev-1", "user-1")
	require.NoError(t, err)
	conn := factory.lastConn("dev-1")

	m.Shutdown()
	assert.True(t, conn.isClosed())
	assert.False(t, conn.logoutCalled)
	assert.Empty(t, m.ActiveSessions())
}
