package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Policy.ConnWatchPeriodMS != 2000 || cfg.Policy.ConnWatchMaxRetries != 30 {
		t.Errorf("policy defaults not applied: %+v", cfg.Policy)
	}
	if cfg.ConnWatchPeriod() != 2*time.Second {
		t.Errorf("ConnWatchPeriod = %v", cfg.ConnWatchPeriod())
	}
	if cfg.ProfileSwitchDelay() != 500*time.Millisecond {
		t.Errorf("ProfileSwitchDelay = %v", cfg.ProfileSwitchDelay())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
policy:
  conn_watch_period_ms: 1000
  conn_watch_max_retries: 5
telemetry:
  enabled: true
  broker: tcp://broker.local:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Policy.ConnWatchPeriodMS != 1000 || cfg.Policy.ConnWatchMaxRetries != 5 {
		t.Errorf("policy = %+v", cfg.Policy)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Broker != "tcp://broker.local:1883" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BTAUDIOD_BLOCKLIST_PATH", "/var/lib/btaudiod/bl.db")
	t.Setenv("BTAUDIOD_POLICY_CONN_WATCH_MAX_RETRIES", "3")

	path := writeConfig(t, "blocklist:\n  path: ./file-value.db\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blocklist.Path != "/var/lib/btaudiod/bl.db" {
		t.Errorf("Blocklist.Path = %q", cfg.Blocklist.Path)
	}
	if cfg.Policy.ConnWatchMaxRetries != 3 {
		t.Errorf("ConnWatchMaxRetries = %d", cfg.Policy.ConnWatchMaxRetries)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero watch period", "policy:\n  conn_watch_period_ms: 0\n"},
		{"negative retries", "policy:\n  conn_watch_max_retries: -1\n"},
		{"bad qos", "telemetry:\n  qos: 3\n"},
		{"metrics without org", "metrics:\n  enabled: true\n"},
		{"empty blocklist path", "blocklist:\n  path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("Load succeeded, want validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load succeeded for missing file")
	}
}

func TestDefaultWithoutFile(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.Telemetry.ClientID != "btaudiod" {
		t.Errorf("ClientID = %q", cfg.Telemetry.ClientID)
	}
}
