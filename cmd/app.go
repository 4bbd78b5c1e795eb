package cmd

import (
	"context"
	"fmt"

	"github.com/mahalbangetid-beep/scb-sub003/core/config"
	"github.com/mahalbangetid-beep/scb-sub003/core/database"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	"github.com/mahalbangetid-beep/scb-sub003/infrastructure/audit"
	"github.com/mahalbangetid-beep/scb-sub003/infrastructure/smmpanel"
	"github.com/mahalbangetid-beep/scb-sub003/infrastructure/valkey"
	"github.com/mahalbangetid-beep/scb-sub003/infrastructure/whatsapp"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/botmonitor"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/crypto"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/msgworker"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/security"
	"github.com/mahalbangetid-beep/scb-sub003/repository"
	"github.com/mahalbangetid-beep/scb-sub003/scheduler"
	"github.com/mahalbangetid-beep/scb-sub003/sessions"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest"
	"github.com/mahalbangetid-beep/scb-sub003/ui/socketio"
	"github.com/mahalbangetid-beep/scb-sub003/usecase"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// application holds every long-lived component of the rest command.
type application struct {
	cfg      *config.Config
	db       *gorm.DB
	vk       *valkey.Client
	tokens   *security.TokenManager
	gateway  *socketio.Gateway
	pool     *msgworker.Pool
	sessions *sessions.Manager
	sink     *audit.FileSink
	health   *usecase.HealthService
	runner   *scheduler.BroadcastRunner
	services rest.Services
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	app.db = db
	if err := repository.AutoMigrate(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("auto-migrate failed: %w", err)
	}

	if cfg.Database.ValkeyEnabled {
		vk, err := valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			// single-node mode still works without locks and relay
			logrus.Warnf("[VALKEY] Disabled, connection failed: %v", err)
		} else {
			app.vk = vk
			logrus.Infof("[VALKEY] Connected to %s", cfg.Database.ValkeyAddress)
		}
	}

	cipher, err := crypto.NewCipher(cfg.Security.SecretKey)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.tokens = security.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiry)
	app.gateway = socketio.NewGateway(app.tokens, app.vk, cfg.App.ServerID)
	app.pool = msgworker.NewPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	app.sink = audit.NewFileSink(audit.FileConfig{
		Path:       cfg.Audit.FonepayFile,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAgeDays: cfg.Audit.MaxAgeDays,
	})

	users := repository.NewUserGormRepository(db)
	devices := repository.NewDeviceGormRepository(db)
	rules := repository.NewAutoReplyGormRepository(db)
	panels := repository.NewPanelGormRepository(db)
	broadcasts := repository.NewBroadcastGormRepository(db)
	wallets := repository.NewWalletGormRepository(db, cfg.Billing.Currency)
	subscriptions := repository.NewSubscriptionGormRepository(db)
	fonepay := repository.NewFonepayGormRepository(db)
	auditLogs := repository.NewAuditGormRepository(db)
	healthRecords := repository.NewHealthGormRepository(db)

	app.sessions = sessions.NewManager(
		whatsapp.NewFactory(cfg, devices.JIDFor),
		devices,
		app.gateway,
		sessions.Options{MaxQRAttempts: cfg.Whatsapp.MaxQRAttempts, Pool: app.pool},
	)

	walletService := usecase.NewWalletService(wallets, app.gateway)
	hook := usecase.NewResourceHook(subscriptions, walletService,
		map[domainSubscription.ResourceType]domainSubscription.Plan{
			domainSubscription.ResourceDevice: {FreeQuota: cfg.Billing.FreeDevices, Price: cfg.Billing.DevicePrice},
			domainSubscription.ResourcePanel:  {FreeQuota: cfg.Billing.FreePanels, Price: cfg.Billing.PanelPrice},
		},
		map[domainSubscription.ResourceType]domainSubscription.ResourceCounter{
			domainSubscription.ResourceDevice: devices.CountByUser,
			domainSubscription.ResourcePanel:  panels.CountByUser,
		},
		cfg.Billing.PeriodDays,
	)

	app.health = usecase.NewHealthService(healthRecords, panels, devices, app.sessions)
	panelService := usecase.NewPanelService(panels, smmpanel.Factory, cipher, hook, app.health)
	if prober, ok := panelService.(usecase.PanelProber); ok {
		app.health.SetPanelProber(prober)
	}
	deviceService := usecase.NewDeviceService(devices, panels, app.sessions, hook, healthRecords, cfg.App.DefaultCountryCode)
	autoReplyService := usecase.NewAutoReplyService(rules, devices)

	monitor := botmonitor.New(cfg.WorkerPool.MonitorBuffer, cfg.WorkerPool.MonitorTTL)
	bot := usecase.NewBotPipeline(devices, panelService, autoReplyService, app.sessions).WithMonitor(monitor)
	app.sessions.SetInboundHandler(bot.HandleInbound)

	var locker scheduler.Locker
	if app.vk != nil {
		locker = app.vk
	}
	app.runner = scheduler.NewBroadcastRunner(broadcasts, devices, app.sessions, app.gateway, locker, scheduler.BroadcastOptions{
		MessageDelay:     cfg.Broadcast.MessageDelay,
		SendTimeout:      cfg.Broadcast.SendTimeout,
		OfflineThreshold: cfg.Broadcast.OfflineThreshold,
	})

	app.services = rest.Services{
		Users:         usecase.NewUserService(users, walletService, app.tokens),
		Devices:       deviceService,
		AutoReplies:   autoReplyService,
		Panels:        panelService,
		Broadcasts:    usecase.NewBroadcastService(broadcasts, devices, cfg.App.DefaultCountryCode),
		Wallet:        walletService,
		Subscriptions: hook,
		Fonepay:       usecase.NewFonepayService(fonepay, walletService, auditLogs, app.sink),
		Health:        app.health,
		Workers:       app.pool,
		BotMonitor:    monitor,
	}
	return app, nil
}

// Close releases everything newApplication opened, in reverse order.
func (a *application) Close() {
	if a.pool != nil {
		a.pool.Stop()
	}
	if a.sessions != nil {
		a.sessions.Shutdown()
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			logrus.Warnf("[AUDIT] Failed to close audit file: %v", err)
		}
	}
	if a.vk != nil {
		a.vk.Close()
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			logrus.Warnf("[DB] Failed to close database: %v", err)
		}
	}
}
