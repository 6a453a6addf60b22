package config

import (
	"os"
	"testing"
)

// clearRuntimeEnv strips every STATUSWATCH_ variable so ambient shell
// settings cannot leak into the assertions.
func clearRuntimeEnv() {
	for _, v := range []string{
		"STATUSWATCH_HTTP_ADDR", "STATUSWATCH_LOG_LEVEL", "STATUSWATCH_LOG_JSON",
		"STATUSWATCH_PROFILE", "STATUSWATCH_TUNING", "STATUSWATCH_DATA_DIR",
		"STATUSWATCH_TIMEZONE", "STATUSWATCH_SMTP_PASSWORD", "STATUSWATCH_HISTORY_SIZE",
	} {
		os.Unsetenv(v)
	}
}

func TestLoadRuntimeDefaults(t *testing.T) {
	clearRuntimeEnv()

	rt := LoadRuntime()

	checks := []struct {
		field string
		got   any
		want  any
	}{
		{"HTTPAddr", rt.HTTPAddr, ":8600"},
		{"LogLevel", rt.LogLevel, "info"},
		{"LogJSON", rt.LogJSON, false},
		{"ProfilePath", rt.ProfilePath, "monitor_config.json"},
		{"TuningPath", rt.TuningPath, ""},
		{"DataDir", rt.DataDir, "."},
		{"Timezone", rt.Timezone, "Europe/Berlin"},
		{"SMTPPassword", rt.SMTPPassword, ""},
		{"HistorySize", rt.HistorySize, 200},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
		}
	}
}

func TestLoadRuntimeFromEnv(t *testing.T) {
	clearRuntimeEnv()
	t.Setenv("STATUSWATCH_HTTP_ADDR", ":9100")
	t.Setenv("STATUSWATCH_LOG_LEVEL", "debug")
	t.Setenv("STATUSWATCH_LOG_JSON", "true")
	t.Setenv("STATUSWATCH_PROFILE", "/etc/statuswatch/profile.json")
	t.Setenv("STATUSWATCH_TIMEZONE", "UTC")
	t.Setenv("STATUSWATCH_SMTP_PASSWORD", "hunter2")
	t.Setenv("STATUSWATCH_HISTORY_SIZE", "50")

	rt := LoadRuntime()

	checks := []struct {
		field string
		got   any
		want  any
	}{
		{"HTTPAddr", rt.HTTPAddr, ":9100"},
		{"LogLevel", rt.LogLevel, "debug"},
		{"LogJSON", rt.LogJSON, true},
		{"ProfilePath", rt.ProfilePath, "/etc/statuswatch/profile.json"},
		{"Timezone", rt.Timezone, "UTC"},
		{"SMTPPassword", rt.SMTPPassword, "hunter2"},
		{"HistorySize", rt.HistorySize, 50},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SW_STR", "hello")
	if got := getEnv("SW_STR", "fallback"); got != "hello" {
		t.Errorf("getEnv = %q, want hello", got)
	}
	if got := getEnv("SW_STR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("getEnv on a missing key = %q, want fallback", got)
	}

	t.Setenv("SW_INT", "42")
	t.Setenv("SW_INT_BAD", "not-a-number")
	if got := getEnvInt("SW_INT", 0); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}
	if got := getEnvInt("SW_INT_MISSING", 99); got != 99 {
		t.Errorf("getEnvInt on a missing key = %d, want 99", got)
	}
	if got := getEnvInt("SW_INT_BAD", 7); got != 7 {
		t.Errorf("getEnvInt on garbage = %d, want the fallback 7", got)
	}

	for val, want := range map[string]bool{"true": true, "1": true, "false": false} {
		t.Setenv("SW_BOOL", val)
		if got := getEnvBool("SW_BOOL", !want); got != want {
			t.Errorf("getEnvBool(%q) = %v, want %v", val, got, want)
		}
	}
	if !getEnvBool("SW_BOOL_MISSING", true) {
		t.Error("getEnvBool on a missing key should keep the default")
	}
}
