package config

import (
	"testing"
	"time"
)

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	embedded := []byte("monitoring:\n  interval: \"45s\"\nlogging:\n  level: \"debug\"")
	t.Setenv("CURATOR_INTERVAL", "20s")
	cli := CLIOverrides{Interval: 5 * time.Second, LogLevel: "warn"}

	cfg, err := LoadLayered(cli, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitoring.Interval.Duration != 5*time.Second {
		t.Errorf("Interval = %v, want CLI override", cfg.Monitoring.Interval.Duration)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want CLI override", cfg.Logging.Level)
	}
}

func TestLoadLayered_EnvOverridesEmbed(t *testing.T) {
	embedded := []byte("monitoring:\n  interval: \"45s\"")
	t.Setenv("CURATOR_INTERVAL", "20s")

	cfg, err := LoadLayered(CLIOverrides{}, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitoring.Interval.Duration != 20*time.Second {
		t.Errorf("Interval = %v, want env override", cfg.Monitoring.Interval.Duration)
	}
}

func TestLocate_EnvVarWins(t *testing.T) {
	t.Setenv("CURATOR_CONFIG", "/tmp/curator-test/agent.yaml")
	if got := Locate(); got != "/tmp/curator-test/agent.yaml" {
		t.Errorf("Locate() = %q, want CURATOR_CONFIG value", got)
	}
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitoring.Interval.Duration != 30*time.Second {
		t.Errorf("Interval = %v, want 30s default", cfg.Monitoring.Interval.Duration)
	}
	if cfg.Monitoring.Thresholds.CPUUsage != 90 {
		t.Errorf("CPU threshold = %v, want 90 default", cfg.Monitoring.Thresholds.CPUUsage)
	}
	if cfg.Monitoring.Thresholds.AppRestarts != 5 {
		t.Errorf("AppRestarts threshold = %v, want 5 default", cfg.Monitoring.Thresholds.AppRestarts)
	}
}

func TestLoadLayered_ParsesApplications(t *testing.T) {
	embedded := []byte(`applications:
  - name: "Viewer"
    path: "/opt/viewer"
    should_be_running: true
`)
	cfg, err := LoadLayered(CLIOverrides{}, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Applications) != 1 {
		t.Fatalf("Applications = %d, want 1", len(cfg.Applications))
	}
	app := cfg.Applications[0]
	if app.Name != "Viewer" || app.Path != "/opt/viewer" || !app.ShouldBeRunning {
		t.Errorf("unexpected application: %+v", app)
	}
}

func TestValidate_RejectsBadThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Monitoring.Thresholds.DiskUsage = 150
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for threshold > 100")
	}
}

func TestValidate_RejectsDuplicateApplications(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Applications = append(cfg.Applications,
		appNamed("Viewer"), appNamed("Viewer"))
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate application name")
	}
}

func TestValidate_RejectsWebhookWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notifications.Channels = []ChannelConfig{
		{Name: "ops", Type: "webhook", Enabled: true},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for enabled webhook without URL")
	}
}
