package config

import (
	"path/filepath"
	"strings"
	"time"

	"go.mau.fi/whatsmeow/proto/waCompanionReg"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Whatsapp   WhatsappConfig
	Broadcast  BroadcastConfig
	Billing    BillingConfig
	WorkerPool WorkerPoolConfig
	Security   SecurityConfig
	Audit      AuditConfig
}

type AppConfig struct {
	Version            string
	Port               string
	SocketPort         string
	Debug              bool
	Environment        string
	OS                 string
	Platform           waCompanionReg.DeviceProps_PlatformType
	BasePath           string
	DefaultCountryCode string
	ServerID           string
	LogLevel           string
	LogFile            string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
	Sessions string
	Logs     string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	URL             string
	SSLMode         string
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
	// SessionURI overrides the per-device session store (postgres DSN); empty means one sqlite file per device.
	SessionURI string
}

type WhatsappConfig struct {
	LogLevel      string
	MaxQRAttempts int
	AutoReconnect bool
}

type BroadcastConfig struct {
	PollSchedule     string
	MessageDelay     time.Duration
	SendTimeout      time.Duration
	OfflineThreshold time.Duration
}

type BillingConfig struct {
	Currency          string
	FreeDevices       int
	DevicePrice       float64
	FreePanels        int
	PanelPrice        float64
	PeriodDays        int
	RenewalSchedule   string
	HealthCheckPeriod time.Duration
}

type WorkerPoolConfig struct {
	Size          int
	QueueSize     int
	MonitorBuffer int
	MonitorTTL    time.Duration
}

type SecurityConfig struct {
	SecretKey     string
	JWTSecret     string
	JWTExpiry     time.Duration
	AdminEmail    string
	AdminPassword string
}

type AuditConfig struct {
	FonepayFile string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	appCfg := AppConfig{
		Version:            "v1.4.0",
		Port:               getEnv("APP_PORT", "3000"),
		SocketPort:         getEnv("SOCKET_PORT", "3001"),
		Debug:              getEnvBool("APP_DEBUG", getEnvBool("DEBUG", false)),
		Environment:        getEnv("APP_ENV", "development"),
		OS:                 getEnv("APP_OS", "SCB"),
		Platform:           waCompanionReg.DeviceProps_PlatformType(1), // Chrome
		BasePath:           strings.TrimRight(getEnv("APP_BASE_PATH", ""), "/"),
		DefaultCountryCode: strings.ToUpper(getEnv("DEFAULT_COUNTRY_CODE", "NP")),
		ServerID:           getEnv("SERVER_ID", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
		Sessions: getEnv("PATH_SESSIONS", filepath.Join(baseDir, "sessions")),
		Logs:     getEnv("PATH_LOGS", filepath.Join(baseDir, "logs")),
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "app.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		URL:             getEnv("DATABASE_URL", ""),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "scb:"),
		SessionURI:      getEnv("DB_SESSION_URI", ""),
	}

	waCfg := WhatsappConfig{
		LogLevel:      getEnv("WHATSAPP_LOG_LEVEL", "ERROR"),
		MaxQRAttempts: getEnvInt("WHATSAPP_MAX_QR_ATTEMPTS", 5),
		AutoReconnect: getEnvBool("WHATSAPP_AUTO_RECONNECT", true),
	}

	broadcastCfg := BroadcastConfig{
		PollSchedule:     getEnv("BROADCAST_POLL_SCHEDULE", "@every 30s"),
		MessageDelay:     getEnvDuration("BROADCAST_MESSAGE_DELAY", 1500*time.Millisecond),
		SendTimeout:      getEnvDuration("BROADCAST_SEND_TIMEOUT", 30*time.Second),
		OfflineThreshold: getEnvDuration("BROADCAST_OFFLINE_THRESHOLD", 24*time.Hour),
	}

	billingCfg := BillingConfig{
		Currency:          getEnv("BILLING_CURRENCY", "NPR"),
		FreeDevices:       getEnvInt("BILLING_FREE_DEVICES", 1),
		DevicePrice:       getEnvFloat("BILLING_DEVICE_PRICE", 500),
		FreePanels:        getEnvInt("BILLING_FREE_PANELS", 1),
		PanelPrice:        getEnvFloat("BILLING_PANEL_PRICE", 300),
		PeriodDays:        getEnvInt("BILLING_PERIOD_DAYS", 30),
		RenewalSchedule:   getEnv("BILLING_RENEWAL_SCHEDULE", "@daily"),
		HealthCheckPeriod: getEnvDuration("HEALTH_CHECK_PERIOD", 15*time.Minute),
	}

	secretKey := getEnv("APP_SECRET_KEY", "changeme_please_change_me_in_prod_12345")
	secCfg := SecurityConfig{
		SecretKey:     secretKey,
		JWTSecret:     getEnv("JWT_SECRET", secretKey),
		JWTExpiry:     getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	auditCfg := AuditConfig{
		FonepayFile: getEnv("AUDIT_FONEPAY_FILE", filepath.Join(pathsCfg.Logs, "fonepay-audit.log")),
		MaxSizeMB:   getEnvInt("AUDIT_MAX_SIZE_MB", 50),
		MaxBackups:  getEnvInt("AUDIT_MAX_BACKUPS", 10),
		MaxAgeDays:  getEnvInt("AUDIT_MAX_AGE_DAYS", 365),
	}

	cfg := &Config{
		App:        appCfg,
		Paths:      pathsCfg,
		Database:   dbCfg,
		Whatsapp:   waCfg,
		Broadcast:  broadcastCfg,
		Billing:    billingCfg,
		WorkerPool: WorkerPoolConfig{
			Size:          getEnvInt("MESSAGE_WORKER_POOL_SIZE", 20),
			QueueSize:     getEnvInt("MESSAGE_WORKER_QUEUE_SIZE", 1000),
			MonitorBuffer: getEnvInt("BOT_MONITOR_BUFFER", 200),
			MonitorTTL:    getEnvDuration("BOT_MONITOR_TTL", 0),
		},
		Security:   secCfg,
		Audit:      auditCfg,
	}

	Global = cfg
	return cfg, nil
}
