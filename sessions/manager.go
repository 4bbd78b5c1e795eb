package sessions

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	"github.com/mahalbangetid-beep/scb-sub003/domains/realtime"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/msgworker"
	"github.com/sirupsen/logrus"
)

var ErrSessionNotConnected = pkgError.NewAppError("device is not connected", http.StatusConflict).WithCode("DEVICE_NOT_CONNECTED")

const (
	ReasonQRExpired = "qr_expired"
	ReasonQRTimeout = "qr_timeout"
	ReasonLoggedOut = "logged_out"
	ReasonDeleted   = "deleted"
	ReasonOpenError = "open_failed"
)

type Options struct {
	MaxQRAttempts int
	Pool          *msgworker.Pool
	Now           func() time.Time
}

// Manager multiplexes the protocol connections of every device and tracks
// their state: pending -> qr -> connected -> disconnected.
type Manager struct {
	factory   Factory
	store     DeviceStore
	publisher realtime.Publisher
	pool      *msgworker.Pool
	maxQR     int
	now       func() time.Time

	inboundMu sync.RWMutex
	inbound   InboundHandler

	mu       sync.RWMutex
	sessions map[string]*session
	gen      atomic.Uint64

	locksMu sync.Mutex
	locks   map[string]*deviceLock
}

type session struct {
	userID string
	gen    uint64
	conn   Connection
	info   domainDevice.SessionInfo
}

type deviceLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(factory Factory, store DeviceStore, publisher realtime.Publisher, opts Options) *Manager {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		factory:   factory,
		store:     store,
		publisher: publisher,
		pool:      opts.Pool,
		maxQR:     opts.MaxQRAttempts,
		now:       opts.Now,
		sessions:  make(map[string]*session),
		locks:     make(map[string]*deviceLock),
	}
}

func (m *Manager) SetInboundHandler(h InboundHandler) {
	m.inboundMu.Lock()
	m.inbound = h
	m.inboundMu.Unlock()
}

// lockDevice serialises lifecycle operations of one device.
func (m *Manager) lockDevice(deviceID string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[deviceID]
	if !ok {
		l = &deviceLock{}
		m.locks[deviceID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, deviceID)
		}
		m.locksMu.Unlock()
	}
}

// CreateSession starts (or resumes) the connection of a device. A session that
// is already connected or waiting for a QR scan is returned unchanged.
func (m *Manager) CreateSession(ctx context.Context, deviceID, userID string) (domainDevice.SessionInfo, error) {
	unlock := m.lockDevice(deviceID)
	defer unlock()
	return m.createLocked(ctx, deviceID, userID)
}

func (m *Manager) createLocked(ctx context.Context, deviceID, userID string) (domainDevice.SessionInfo, error) {
	m.mu.RLock()
	existing := m.sessions[deviceID]
	var reuse bool
	var current domainDevice.SessionInfo
	if existing != nil && existing.conn != nil {
		current = existing.info
		switch existing.info.Status {
		case domainDevice.StatusConnected:
			reuse = existing.conn.IsConnected()
		case domainDevice.StatusPending, domainDevice.StatusQR:
			reuse = true
		}
	}
	m.mu.RUnlock()

	if reuse {
		return current, nil
	}
	if existing != nil {
		m.forget(deviceID, existing.gen)
		m.teardown(existing.conn)
	}

	now := m.now()
	s := &session{
		userID: userID,
		gen:    m.gen.Add(1),
		info: domainDevice.SessionInfo{
			DeviceID:  deviceID,
			UserID:    userID,
			Status:    domainDevice.StatusPending,
			Active:    true,
			UpdatedAt: now,
		},
	}

	m.mu.Lock()
	m.sessions[deviceID] = s
	m.mu.Unlock()

	m.persist(ctx, deviceID, domainDevice.SessionState{Status: domainDevice.StatusPending, At: now})
	m.publishStatus(s.info)

	gen := s.gen
	conn, err := m.factory.Open(ctx, deviceID, func(evt Event) {
		m.handleEvent(deviceID, gen, evt)
	})
	if err != nil {
		info := m.fail(ctx, deviceID, gen, ReasonOpenError)
		return info, fmt.Errorf("open session %s: %w", deviceID, err)
	}

	m.mu.Lock()
	if cur := m.sessions[deviceID]; cur != nil && cur.gen == gen {
		cur.conn = conn
	}
	m.mu.Unlock()

	if err := conn.Connect(ctx); err != nil {
		m.teardown(conn)
		info := m.fail(ctx, deviceID, gen, err.Error())
		return info, fmt.Errorf("connect session %s: %w", deviceID, err)
	}

	logrus.Infof("[SESSIONS] Session started for device %s", deviceID)
	return m.GetSessionStatus(deviceID), nil
}

// fail drops a session that could not start and records it as disconnected.
func (m *Manager) fail(ctx context.Context, deviceID string, gen uint64, reason string) domainDevice.SessionInfo {
	now := m.now()
	info := domainDevice.SessionInfo{DeviceID: deviceID, Status: domainDevice.StatusDisconnected, Reason: reason, UpdatedAt: now}

	m.mu.Lock()
	if cur := m.sessions[deviceID]; cur != nil && cur.gen == gen {
		info.UserID = cur.userID
		delete(m.sessions, deviceID)
	}
	m.mu.Unlock()

	m.persist(ctx, deviceID, domainDevice.SessionState{Status: domainDevice.StatusDisconnected, At: now})
	m.publishStatus(info)
	return info
}

// DeleteSession logs the device out, removes its stored credentials and forgets it.
func (m *Manager) DeleteSession(ctx context.Context, deviceID string) error {
	unlock := m.lockDevice(deviceID)
	defer unlock()

	m.mu.Lock()
	s := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	userID := ""
	if s != nil {
		userID = s.userID
		if s.conn != nil {
			if s.conn.IsLoggedIn() {
				if err := s.conn.Logout(ctx); err != nil {
					logrus.WithError(err).Warnf("[SESSIONS] Logout failed for device %s, purging anyway", deviceID)
				}
			}
			m.teardown(s.conn)
		}
	}

	if err := m.factory.Purge(deviceID); err != nil {
		return fmt.Errorf("purge session %s: %w", deviceID, err)
	}

	now := m.now()
	m.persist(ctx, deviceID, domainDevice.SessionState{Status: domainDevice.StatusDisconnected, At: now})
	m.publishStatus(domainDevice.SessionInfo{
		DeviceID:  deviceID,
		UserID:    userID,
		Status:    domainDevice.StatusDisconnected,
		Reason:    ReasonDeleted,
		UpdatedAt: now,
	})
	logrus.Infof("[SESSIONS] Session deleted for device %s", deviceID)
	return nil
}

// RestartSession drops the live connection but keeps stored credentials, then reconnects.
func (m *Manager) RestartSession(ctx context.Context, deviceID, userID string) (domainDevice.SessionInfo, error) {
	unlock := m.lockDevice(deviceID)
	defer unlock()

	m.mu.Lock()
	s := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if s != nil {
		if userID == "" {
			userID = s.userID
		}
		if s.conn != nil {
			m.teardown(s.conn)
		}
	}

	logrus.Infof("[SESSIONS] Restarting session for device %s", deviceID)
	return m.createLocked(ctx, deviceID, userID)
}

// GetSessionStatus reports the live state; unknown devices are disconnected and inactive.
func (m *Manager) GetSessionStatus(deviceID string) domainDevice.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[deviceID]; ok {
		return s.info
	}
	return domainDevice.SessionInfo{DeviceID: deviceID, Status: domainDevice.StatusDisconnected}
}

func (m *Manager) IsConnected(deviceID string) bool {
	return m.GetSessionStatus(deviceID).Status == domainDevice.StatusConnected
}

// ActiveSessions returns a snapshot of every registered session.
func (m *Manager) ActiveSessions() []domainDevice.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domainDevice.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.info)
	}
	return out
}

// LoadExistingSessions restores every device with stored credentials. Devices
// without credentials are recorded as disconnected.
func (m *Manager) LoadExistingSessions(ctx context.Context) (int, error) {
	devices, err := m.store.ListRestorable(ctx)
	if err != nil {
		return 0, fmt.Errorf("list devices: %w", err)
	}

	restored := 0
	for _, d := range devices {
		if !m.factory.HasSession(d.ID) {
			if d.Status != domainDevice.StatusDisconnected {
				m.persist(ctx, d.ID, domainDevice.SessionState{Status: domainDevice.StatusDisconnected, At: m.now()})
			}
			continue
		}
		if _, err := m.CreateSession(ctx, d.ID, d.UserID); err != nil {
			logrus.WithError(err).Errorf("[SESSIONS] Failed to restore device %s", d.ID)
			continue
		}
		restored++
	}

	logrus.Infof("[SESSIONS] Restored %d of %d devices", restored, len(devices))
	return restored, nil
}

// SendText sends a plain text message through a connected device.
func (m *Manager) SendText(ctx context.Context, deviceID, to, text string) (string, error) {
	m.mu.RLock()
	s := m.sessions[deviceID]
	var conn Connection
	if s != nil && s.info.Status == domainDevice.StatusConnected {
		conn = s.conn
	}
	m.mu.RUnlock()

	if conn == nil {
		return "", ErrSessionNotConnected
	}

	id, err := conn.SendText(ctx, to, text)
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", to, err)
	}
	if err := m.store.IncrementCounters(ctx, deviceID, 1, 0); err != nil {
		logrus.WithError(err).Warnf("[SESSIONS] Failed to count outbound message for %s", deviceID)
	}
	return id, nil
}

// Shutdown closes every connection without logging out, so sessions resume on next boot.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for id, s := range all {
		if s.conn != nil {
			m.teardown(s.conn)
		}
		logrus.Debugf("[SESSIONS] Closed device %s", id)
	}
	logrus.Infof("[SESSIONS] Shutdown complete (%d sessions closed)", len(all))
}

func (m *Manager) handleEvent(deviceID string, gen uint64, evt Event) {
	if evt.Kind == EventMessage {
		m.handleMessage(deviceID, gen, evt.Message)
		return
	}

	now := m.now()

	m.mu.Lock()
	s := m.sessions[deviceID]
	if s == nil || s.gen != gen {
		m.mu.Unlock()
		return
	}

	prev := s.info.Status
	state := domainDevice.SessionState{At: now}
	var stop, purge bool
	publishQR := false

	switch evt.Kind {
	case EventQR:
		s.info.QRAttempts++
		if m.maxQR > 0 && s.info.QRAttempts > m.maxQR {
			s.info.Status = domainDevice.StatusDisconnected
			s.info.QRCode = ""
			s.info.Reason = ReasonQRExpired
			stop = true
		} else {
			s.info.Status = domainDevice.StatusQR
			s.info.QRCode = evt.QRImage
			s.info.Reason = ""
			publishQR = true
		}
	case EventQRTimeout:
		s.info.Status = domainDevice.StatusDisconnected
		s.info.QRCode = ""
		s.info.Reason = ReasonQRTimeout
		if evt.Reason != "" {
			s.info.Reason = evt.Reason
		}
		stop = true
	case EventConnected:
		s.info.Status = domainDevice.StatusConnected
		s.info.QRCode = ""
		s.info.QRAttempts = 0
		s.info.Reason = ""
		if evt.Phone != "" {
			s.info.Phone = evt.Phone
		}
		state.JID = evt.JID
		state.Phone = evt.Phone
	case EventDisconnected:
		s.info.Status = domainDevice.StatusDisconnected
		s.info.Reason = evt.Reason
	case EventLoggedOut:
		s.info.Status = domainDevice.StatusDisconnected
		s.info.QRCode = ""
		s.info.Reason = ReasonLoggedOut
		stop, purge = true, true
	default:
		m.mu.Unlock()
		return
	}

	s.info.UpdatedAt = now
	state.Status = s.info.Status
	conn := s.conn
	if stop {
		s.info.Active = false
		delete(m.sessions, deviceID)
	}
	info := s.info
	m.mu.Unlock()

	if stop && conn != nil {
		// events arrive on the connection's own goroutine, tear it down elsewhere
		go func() {
			m.teardown(conn)
			if purge {
				if err := m.factory.Purge(deviceID); err != nil {
					logrus.WithError(err).Errorf("[SESSIONS] Failed to purge credentials of %s", deviceID)
				}
			}
		}()
	} else if purge {
		if err := m.factory.Purge(deviceID); err != nil {
			logrus.WithError(err).Errorf("[SESSIONS] Failed to purge credentials of %s", deviceID)
		}
	}

	if prev != info.Status || evt.Kind == EventConnected || stop {
		m.persist(context.Background(), deviceID, state)
	}
	if publishQR {
		m.publisher.PublishToUser(info.UserID, realtime.EventDeviceQR, map[string]any{
			"device_id": deviceID,
			"qr_code":   info.QRCode,
			"attempt":   info.QRAttempts,
		})
	}
	if prev != info.Status || stop {
		m.publishStatus(info)
	}

	logrus.WithFields(logrus.Fields{
		"device_id": deviceID,
		"from":      prev,
		"to":        info.Status,
		"reason":    info.Reason,
	}).Debug("[SESSIONS] State transition")
}

func (m *Manager) handleMessage(deviceID string, gen uint64, msg *InboundMessage) {
	if msg == nil {
		return
	}

	m.mu.RLock()
	s := m.sessions[deviceID]
	if s == nil || s.gen != gen {
		m.mu.RUnlock()
		return
	}
	userID := s.userID
	m.mu.RUnlock()

	in := *msg
	in.DeviceID = deviceID
	in.UserID = userID

	if err := m.store.IncrementCounters(context.Background(), deviceID, 0, 1); err != nil {
		logrus.WithError(err).Warnf("[SESSIONS] Failed to count inbound message for %s", deviceID)
	}
	m.publisher.PublishToUser(userID, realtime.EventMessageReceived, in)

	m.inboundMu.RLock()
	handler := m.inbound
	m.inboundMu.RUnlock()
	if handler == nil {
		return
	}

	job := msgworker.Job{
		DeviceID: deviceID,
		ChatJID:  in.ChatJID,
		Handler: func(ctx context.Context) error {
			return handler(ctx, in)
		},
	}
	if m.pool != nil {
		m.pool.Dispatch(job)
		return
	}
	go func() {
		if err := job.Handler(context.Background()); err != nil {
			logrus.WithError(err).Errorf("[SESSIONS] Inbound handler failed for %s", deviceID)
		}
	}()
}

func (m *Manager) forget(deviceID string, gen uint64) {
	m.mu.Lock()
	if cur := m.sessions[deviceID]; cur != nil && cur.gen == gen {
		delete(m.sessions, deviceID)
	}
	m.mu.Unlock()
}

func (m *Manager) teardown(conn Connection) {
	if conn == nil {
		return
	}
	conn.Disconnect()
	if err := conn.Close(); err != nil {
		logrus.WithError(err).Warn("[SESSIONS] Failed to close connection store")
	}
}

func (m *Manager) persist(ctx context.Context, deviceID string, state domainDevice.SessionState) {
	if m.store == nil {
		return
	}
	if err := m.store.UpdateSessionState(ctx, deviceID, state); err != nil {
		logrus.WithError(err).Errorf("[SESSIONS] Failed to persist %s state for device %s", state.Status, deviceID)
	}
}

func (m *Manager) publishStatus(info domainDevice.SessionInfo) {
	if info.UserID == "" {
		return
	}
	m.publisher.PublishToUser(info.UserID, realtime.EventDeviceStatus, info)
}
