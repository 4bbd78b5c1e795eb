package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mahalbangetid-beep/scb-sub003/core/config"
	"github.com/mahalbangetid-beep/scb-sub003/scheduler"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the REST API, Socket.IO and background schedulers",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := config.Global
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := newApplication(ctx, cfg)
	if err != nil {
		logrus.Fatalf("[APP] Failed to initialise: %v", err)
	}

	if err := application.services.Users.EnsureAdmin(ctx, cfg.Security.AdminEmail, cfg.Security.AdminPassword); err != nil {
		logrus.Errorf("[AUTH] Failed to bootstrap admin: %v", err)
	}

	application.pool.Start(ctx)

	if n, err := application.sessions.LoadExistingSessions(ctx); err != nil {
		logrus.Errorf("[SESSION] Failed to restore sessions: %v", err)
	} else {
		logrus.Infof("[SESSION] Restoring %d session(s)", n)
	}

	// stuck broadcasts must be released before the first poll
	if err := application.runner.Recover(ctx); err != nil {
		logrus.Errorf("[SCHEDULER] Failed to recover broadcasts: %v", err)
	}
	jobs := scheduler.New()
	if err := jobs.AddBroadcastPoller(cfg.Broadcast.PollSchedule, application.runner); err != nil {
		logrus.Fatalf("[SCHEDULER] Invalid broadcast schedule %q: %v", cfg.Broadcast.PollSchedule, err)
	}
	if err := jobs.AddRenewals(cfg.Billing.RenewalSchedule, application.services.Subscriptions); err != nil {
		logrus.Fatalf("[SCHEDULER] Invalid renewal schedule %q: %v", cfg.Billing.RenewalSchedule, err)
	}
	jobs.AddHealthChecks(cfg.Billing.HealthCheckPeriod, application.health)
	jobs.Start()

	application.gateway.StartRelay(ctx)
	application.gateway.Listen(":" + cfg.App.SocketPort)

	app := fiber.New(fiber.Config{
		AppName:               "SCB",
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: !cfg.App.Debug,
		ServerHeader:          "Hidden",
	})
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	rest.Register(app.Group(cfg.App.BasePath+"/api"), application.tokens, application.services)
	app.Use(middleware.NotFound)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
	}()

	logrus.Infof("[REST] Listening on :%s", cfg.App.Port)
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Errorf("[REST] Server stopped: %v", err)
	}

	application.gateway.Close()
	jobs.Stop()
	cancel()
	application.Close()
	logrus.Info("[APP] Application stopped cleanly.")
}
