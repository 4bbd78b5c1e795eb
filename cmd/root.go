package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mahalbangetid-beep/scb-sub003/core/config"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:   "scb",
	Short: "Multi-tenant WhatsApp automation backend",
	Long: `Runs the WhatsApp session manager, the broadcast scheduler, wallet billing
and the REST + Socket.IO API used by the operator dashboard.`,
}

func init() {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	time.Local = time.UTC

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	initFlags()

	cobra.OnInitialize(initEnvConfig, initLogging)
}

func initFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("port", "p", "", "REST port --port <number> | example: --port=3000")
	flags.String("socket-port", "", "Socket.IO port --socket-port <number> | example: --socket-port=3001")
	flags.BoolP("debug", "d", false, "verbose logging --debug <true/false>")
	flags.String("db-driver", "", `database driver --db-driver <sqlite|postgres>`)

	_ = viper.BindPFlag("app_port", flags.Lookup("port"))
	_ = viper.BindPFlag("socket_port", flags.Lookup("socket-port"))
	_ = viper.BindPFlag("app_debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("db_driver", flags.Lookup("db-driver"))
}

// initEnvConfig loads the environment config and lets flags override it.
func initEnvConfig() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	if port := viper.GetString("app_port"); port != "" {
		cfg.App.Port = port
	}
	if port := viper.GetString("socket_port"); port != "" {
		cfg.App.SocketPort = port
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if driver := viper.GetString("db_driver"); driver != "" {
		cfg.Database.Driver = driver
	}
	if cfg.App.Debug {
		cfg.App.LogLevel = "debug"
		cfg.Whatsapp.LogLevel = "DEBUG"
	}

	if err := utils.EnsureDirectories(cfg.Paths.Storages, cfg.Paths.Sessions, cfg.Paths.Logs); err != nil {
		logrus.Errorln(err)
	}
	cfg.App.ServerID = utils.NodeID(cfg.App.ServerID, cfg.Paths.Storages)
}

func initLogging() {
	cfg := config.Global
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.App.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.App.LogFile != "" {
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.App.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}))
	}
	logrus.Debugf("[CONFIG] %v", config.GetAllSettings())
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
