// Package config handles process settings, the watch profile, and tuning.
package config

import (
	"os"
	"strconv"
)

// Runtime holds process-level settings resolved once at startup.
type Runtime struct {
	HTTPAddr     string
	LogLevel     string
	LogJSON      bool
	ProfilePath  string
	TuningPath   string
	DataDir      string
	Timezone     string
	SMTPPassword string // overrides the profile credential when set
	HistorySize  int
}

func LoadRuntime() *Runtime {
	return &Runtime{
		HTTPAddr:     getEnv("STATUSWATCH_HTTP_ADDR", ":8600"),
		LogLevel:     getEnv("STATUSWATCH_LOG_LEVEL", "info"),
		LogJSON:      getEnvBool("STATUSWATCH_LOG_JSON", false),
		ProfilePath:  getEnv("STATUSWATCH_PROFILE", "monitor_config.json"),
		TuningPath:   getEnv("STATUSWATCH_TUNING", ""),
		DataDir:      getEnv("STATUSWATCH_DATA_DIR", "."),
		Timezone:     getEnv("STATUSWATCH_TIMEZONE", "Europe/Berlin"),
		SMTPPassword: getEnv("STATUSWATCH_SMTP_PASSWORD", ""),
		HistorySize:  getEnvInt("STATUSWATCH_HISTORY_SIZE", 200),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
