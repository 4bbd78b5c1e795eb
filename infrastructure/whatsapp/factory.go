package whatsapp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mahalbangetid-beep/scb-sub003/core/config"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/sessions"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// JIDLookup resolves the paired JID recorded for a device, empty when unpaired.
// Only the shared postgres store needs it.
type JIDLookup func(ctx context.Context, deviceID string) (string, error)

// Factory opens whatsmeow clients. With no session URI every device keeps its
// keys in its own sqlite file; otherwise all devices share one sql container.
type Factory struct {
	cfg    *config.Config
	lookup JIDLookup

	sharedOnce sync.Once
	shared     *sqlstore.Container
	sharedErr  error
}

var _ sessions.Factory = (*Factory)(nil)

func NewFactory(cfg *config.Config, lookup JIDLookup) *Factory {
	configureDeviceProps(cfg)
	return &Factory{cfg: cfg, lookup: lookup}
}

func configureDeviceProps(cfg *config.Config) {
	osName := fmt.Sprintf("%s %s", cfg.App.OS, cfg.App.Version)
	platform := cfg.App.Platform
	store.DeviceProps.PlatformType = &platform
	store.DeviceProps.Os = &osName
}

func (f *Factory) usesSharedStore() bool {
	return strings.HasPrefix(f.cfg.Database.SessionURI, "postgres")
}

func (f *Factory) sharedContainer(ctx context.Context) (*sqlstore.Container, error) {
	f.sharedOnce.Do(func() {
		f.shared, f.sharedErr = sqlstore.New(ctx, "postgres", f.cfg.Database.SessionURI,
			waLog.Stdout("Database", f.cfg.Whatsapp.LogLevel, true))
	})
	return f.shared, f.sharedErr
}

// device returns the container and stored device of deviceID. The device is
// nil when nothing was paired yet.
func (f *Factory) device(ctx context.Context, deviceID string) (*sqlstore.Container, *store.Device, bool, error) {
	if !f.usesSharedStore() {
		uri := fmt.Sprintf("file:%s?_foreign_keys=on", utils.SessionStorePath(f.cfg.Paths.Sessions, deviceID))
		container, err := sqlstore.New(ctx, "sqlite3", uri, waLog.Stdout("DB-"+shortID(deviceID), f.cfg.Whatsapp.LogLevel, true))
		if err != nil {
			return nil, nil, false, err
		}
		dev, err := container.GetFirstDevice(ctx)
		if err != nil {
			_ = container.Close()
			return nil, nil, false, err
		}
		return container, dev, true, nil
	}

	container, err := f.sharedContainer(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	if f.lookup == nil {
		return container, nil, false, nil
	}
	raw, err := f.lookup(ctx, deviceID)
	if err != nil || raw == "" {
		return container, nil, false, err
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return container, nil, false, nil
	}
	dev, err := container.GetDevice(ctx, jid)
	return container, dev, false, err
}

func (f *Factory) Open(ctx context.Context, deviceID string, handler func(sessions.Event)) (sessions.Connection, error) {
	container, dev, owned, err := f.device(ctx, deviceID)
	if err != nil {
		return nil, pkgError.InternalServerError(fmt.Sprintf("failed to open session store: %v", err))
	}
	if dev == nil {
		dev = container.NewDevice()
	}

	client := whatsmeow.NewClient(dev, waLog.Stdout("Client-"+shortID(deviceID), f.cfg.Whatsapp.LogLevel, true))
	client.EnableAutoReconnect = f.cfg.Whatsapp.AutoReconnect
	client.AutoTrustIdentity = true

	conn := &connection{
		deviceID: deviceID,
		client:   client,
		handler:  handler,
	}
	if owned {
		conn.container = container
	}
	conn.handlerID = client.AddEventHandler(conn.onEvent)
	logrus.Debugf("[WHATSAPP] Opened client for device %s (paired=%v)", deviceID, dev.ID != nil)
	return conn, nil
}

// HasSession reports whether deviceID has paired credentials. A store file
// left behind by an unfinished QR pairing does not count.
func (f *Factory) HasSession(deviceID string) bool {
	if !f.usesSharedStore() && !utils.FileExists(utils.SessionStorePath(f.cfg.Paths.Sessions, deviceID)) {
		return false
	}
	container, dev, owned, err := f.device(context.Background(), deviceID)
	if owned && container != nil {
		defer container.Close()
	}
	if err != nil || container == nil {
		return false
	}
	return dev != nil && dev.ID != nil
}

func (f *Factory) Purge(deviceID string) error {
	if f.usesSharedStore() {
		ctx := context.Background()
		container, dev, _, err := f.device(ctx, deviceID)
		if err != nil {
			return err
		}
		if dev == nil {
			return nil
		}
		return container.DeleteDevice(ctx, dev)
	}

	for _, path := range utils.SessionStoreFiles(f.cfg.Paths.Sessions, deviceID) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.Errorf("[CLEANUP] Failed to remove %s: %v", path, err)
			return err
		}
	}
	return nil
}

// Close releases the shared container, if one was opened.
func (f *Factory) Close() error {
	if f.shared != nil {
		return f.shared.Close()
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
