package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns a map of the non-secret settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":                 Global.App.Version,
		"app_debug":                   Global.App.Debug,
		"app_environment":             Global.App.Environment,
		"default_country_code":        Global.App.DefaultCountryCode,
		"database_driver":             Global.Database.Driver,
		"valkey_enabled":              Global.Database.ValkeyEnabled,
		"whatsapp_max_qr_attempts":    Global.Whatsapp.MaxQRAttempts,
		"whatsapp_auto_reconnect":     Global.Whatsapp.AutoReconnect,
		"broadcast_poll_schedule":     Global.Broadcast.PollSchedule,
		"broadcast_message_delay":     Global.Broadcast.MessageDelay.String(),
		"broadcast_offline_threshold": Global.Broadcast.OfflineThreshold.String(),
		"billing_currency":            Global.Billing.Currency,
		"billing_free_devices":        Global.Billing.FreeDevices,
		"billing_device_price":        Global.Billing.DevicePrice,
		"billing_free_panels":         Global.Billing.FreePanels,
		"billing_panel_price":         Global.Billing.PanelPrice,
		"billing_period_days":         Global.Billing.PeriodDays,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("1500ms", "24h") or plain milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
