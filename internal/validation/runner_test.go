package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/curator-app/agent/internal/autostart"
	"github.com/curator-app/agent/internal/config"
	"github.com/curator-app/agent/internal/models"
	"github.com/curator-app/agent/internal/settings"
)

type fakeSnapshots struct {
	snapshot *models.Snapshot
}

func (f *fakeSnapshots) CurrentSnapshot() *models.Snapshot { return f.snapshot }

type fakeVerifier struct {
	applied   map[string]bool
	integrity bool
	err       error
}

func (f *fakeVerifier) VerifySettings(_ context.Context, names []string) ([]settings.SettingCheck, error) {
	if f.err != nil {
		return nil, f.err
	}
	checks := make([]settings.SettingCheck, 0, len(names))
	for _, name := range names {
		status := settings.StatusNotApplied
		if f.applied[name] {
			status = settings.StatusApplied
		}
		checks = append(checks, settings.SettingCheck{Setting: name, Status: status})
	}
	return checks, nil
}

func (f *fakeVerifier) CheckIntegrityProtectionStatus(context.Context) (settings.IntegrityStatus, error) {
	if f.err != nil {
		return settings.IntegrityStatus{}, f.err
	}
	return settings.IntegrityStatus{Enabled: f.integrity}, nil
}

type fakeManager struct {
	label     string
	installed bool
	loaded    bool
}

func (f *fakeManager) IsInstalled() (bool, error) { return f.installed, nil }
func (f *fakeManager) IsLoaded() (bool, error)    { return f.loaded, nil }
func (f *fakeManager) Install(string) error       { return nil }
func (f *fakeManager) Uninstall() error           { return nil }
func (f *fakeManager) Label() string              { return f.label }

func healthySnapshot() *models.Snapshot {
	pid := int32(4242)
	return &models.Snapshot{
		System: &models.SystemMetrics{
			CPU:           models.NewMetricValue(20, 90),
			Memory:        models.NewMetricValue(40, 90),
			Disk:          models.NewMetricValue(55, 90),
			UptimeSeconds: 2 * 3600,
			Load1:         0.4,
		},
		Network: &models.NetworkInfo{
			Interfaces: []models.NetworkInterface{
				{Name: "lo0", Addresses: []string{"127.0.0.1"}, Up: true, Loopback: true},
				{Name: "en0", Addresses: []string{"192.168.1.40"}, Up: true},
			},
			PrimaryAddress: "192.168.1.40",
			Reachable:      true,
		},
		Applications: []models.AppStatus{
			{Name: "Viewer", Status: models.AppRunning, PID: &pid, ShouldBeRunning: true},
		},
		Displays:  []models.DisplayStatus{{Name: "HDMI-1", Resolution: "3840x2160", Online: true}},
		Timestamp: time.Now().UTC(),
	}
}

func allApplied() map[string]bool {
	applied := make(map[string]bool)
	for _, name := range settings.RequiredSettings {
		applied[name] = true
	}
	return applied
}

func testStore(t *testing.T) *config.Store {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Notifications.Channels = []config.ChannelConfig{
		{Name: "ops", Type: "webhook", URL: "https://hooks.example.com/curator", Enabled: true},
	}
	store, err := config.NewStore(cfg, "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func healthyRunner(t *testing.T) *Runner {
	t.Helper()
	return NewRunner(Deps{
		Snapshots: &fakeSnapshots{snapshot: healthySnapshot()},
		Store:     testStore(t),
		Settings:  &fakeVerifier{applied: allApplied(), integrity: true},
	}, zap.NewNop())
}

func TestRunFull_HealthyMachinePasses(t *testing.T) {
	r := NewRunner(Deps{
		Snapshots: &fakeSnapshots{snapshot: healthySnapshot()},
		Store:     testStore(t),
		Settings:  &fakeVerifier{applied: allApplied(), integrity: true},
		Autostart: []autostart.Manager{&fakeManager{label: "com.curator.agent", installed: true, loaded: true}},
	}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if len(results) != len(r.AvailableTests()) {
		t.Fatalf("ran %d tests, registry has %d", len(results), len(r.AvailableTests()))
	}
	for _, res := range results {
		if res.Status != StatusPassed {
			t.Errorf("%s: status %s (%s), want passed", res.ID, res.Status, res.Message)
		}
		if res.Duration < 0 {
			t.Errorf("%s: negative duration %s", res.ID, res.Duration)
		}
	}

	summary := r.Summary()
	if summary.Score != 100 {
		t.Errorf("score = %v, want 100", summary.Score)
	}
	if !summary.IsHealthy {
		t.Error("summary should be healthy")
	}
}

func TestRunFull_AlreadyRunning(t *testing.T) {
	r := healthyRunner(t)

	started := make(chan struct{})
	release := make(chan struct{})
	r.Register(Test{
		ID:       "blocker",
		Name:     "Blocker",
		Category: CategorySystem,
		Priority: PriorityLow,
		Run: func(context.Context, Filter) (Outcome, error) {
			close(started)
			<-release
			return Outcome{Passed: true, Message: "done"}, nil
		},
	})

	done := make(chan error, 1)
	go func() {
		_, err := r.RunFull(context.Background(), Filter{IDs: []string{"blocker"}})
		done <- err
	}()

	<-started
	if _, err := r.RunFull(context.Background(), Filter{}); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("concurrent RunFull error = %v, want ErrAlreadyRunning", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first RunFull: %v", err)
	}

	// The rejected call must not have disturbed the winning run.
	res, ok := r.TestResult("blocker")
	if !ok || res.Status != StatusPassed {
		t.Fatalf("blocker result = %+v, ok=%v; want passed", res, ok)
	}
}

func TestRunFull_ReturnsToIdleAfterPanic(t *testing.T) {
	r := healthyRunner(t)
	r.Register(Test{
		ID:       "panics",
		Name:     "Panics",
		Category: CategorySystem,
		Priority: PriorityLow,
		Run: func(context.Context, Filter) (Outcome, error) {
			panic("boom")
		},
	})
	r.Register(Test{
		ID:       "after-panic",
		Name:     "After Panic",
		Category: CategorySystem,
		Priority: PriorityLow,
		Run: func(context.Context, Filter) (Outcome, error) {
			return Outcome{Passed: true, Message: "still here"}, nil
		},
	})

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"panics", "after-panic"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Status != StatusError || !strings.Contains(results[0].Message, "boom") {
		t.Errorf("panicking test result = %+v, want error mentioning boom", results[0])
	}
	if results[1].Status != StatusPassed {
		t.Errorf("test after panic = %+v, want passed", results[1])
	}

	// Runner must be idle again.
	if _, err := r.RunFull(context.Background(), Filter{IDs: []string{"after-panic"}}); err != nil {
		t.Fatalf("second RunFull after panic: %v", err)
	}
}

func TestRunFull_ErrorBecomesErrorResult(t *testing.T) {
	r := healthyRunner(t)
	r.Register(Test{
		ID:       "erroring",
		Name:     "Erroring",
		Category: CategorySystem,
		Priority: PriorityLow,
		Run: func(context.Context, Filter) (Outcome, error) {
			return Outcome{}, fmt.Errorf("probe unavailable")
		},
	})

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"erroring"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if results[0].Status != StatusError || results[0].Passed {
		t.Fatalf("result = %+v, want error status", results[0])
	}
	if results[0].Message != "probe unavailable" {
		t.Errorf("message = %q", results[0].Message)
	}
}

func TestRunFull_EmptySelectionSummary(t *testing.T) {
	r := healthyRunner(t)
	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"no-such-test"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}

	summary := r.Summary()
	if summary.Score != 0 {
		t.Errorf("score = %v, want 0", summary.Score)
	}
	if !summary.IsHealthy {
		t.Error("empty run must report healthy")
	}
}

func TestRunFull_FilterIntersection(t *testing.T) {
	r := healthyRunner(t)
	results, err := r.RunFull(context.Background(), Filter{
		Categories: []string{CategorySystem},
		Priorities: []Priority{PriorityCritical},
	})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if len(results) != 1 || results[0].ID != "resource-usage" {
		t.Fatalf("results = %+v, want only resource-usage", results)
	}
}

func TestCriticalApps_NamesStoppedApplication(t *testing.T) {
	snap := healthySnapshot()
	snap.Applications[0].Status = models.AppStopped
	snap.Applications[0].PID = nil
	r := NewRunner(Deps{Snapshots: &fakeSnapshots{snapshot: snap}}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"critical-apps-running"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	res := results[0]
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Message, "Viewer") {
		t.Errorf("message %q does not name the stopped application", res.Message)
	}
	if len(res.Recommendations) == 0 {
		t.Error("failing test should carry a recommendation")
	}
}

func TestSystemUptime_TooShort(t *testing.T) {
	snap := healthySnapshot()
	snap.System.UptimeSeconds = 300
	r := NewRunner(Deps{Snapshots: &fakeSnapshots{snapshot: snap}}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"system-uptime"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if results[0].Status != StatusFailed {
		t.Fatalf("status = %s, want failed", results[0].Status)
	}
}

func TestResourceUsage_OverLimit(t *testing.T) {
	snap := healthySnapshot()
	snap.System.Disk = models.NewMetricValue(97, 90)
	r := NewRunner(Deps{Snapshots: &fakeSnapshots{snapshot: snap}}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"resource-usage"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	res := results[0]
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Message, "disk") {
		t.Errorf("message %q does not name disk", res.Message)
	}
}

func TestDisplays_NoneDetectedWarns(t *testing.T) {
	snap := healthySnapshot()
	snap.Displays = nil
	r := NewRunner(Deps{Snapshots: &fakeSnapshots{snapshot: snap}}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"displays-online"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if results[0].Status != StatusWarning {
		t.Fatalf("status = %s, want warning", results[0].Status)
	}
}

func TestSystemSettings_ReportsMissing(t *testing.T) {
	applied := allApplied()
	applied[settings.SettingScreensaver] = false
	r := NewRunner(Deps{
		Snapshots: &fakeSnapshots{snapshot: healthySnapshot()},
		Settings:  &fakeVerifier{applied: applied, integrity: true},
	}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"system-settings"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	res := results[0]
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Message, settings.SettingScreensaver) {
		t.Errorf("message %q does not name the missing setting", res.Message)
	}
}

func TestSecurityBaseline_WarnsWhenIntegrityOff(t *testing.T) {
	r := NewRunner(Deps{
		Snapshots: &fakeSnapshots{snapshot: healthySnapshot()},
		Settings:  &fakeVerifier{applied: allApplied(), integrity: false},
	}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"security-baseline"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if results[0].Status != StatusWarning {
		t.Fatalf("status = %s, want warning", results[0].Status)
	}
}

func TestAutostart_NotLoadedFails(t *testing.T) {
	r := NewRunner(Deps{
		Snapshots: &fakeSnapshots{snapshot: healthySnapshot()},
		Autostart: []autostart.Manager{&fakeManager{label: "com.curator.agent", installed: true, loaded: false}},
	}, zap.NewNop())

	results, err := r.RunFull(context.Background(), Filter{IDs: []string{"autostart-entries"}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	res := results[0]
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Message, "com.curator.agent") {
		t.Errorf("message %q does not name the entry", res.Message)
	}
}

func TestNoSnapshot_ErrorsNotPanics(t *testing.T) {
	r := NewRunner(Deps{}, zap.NewNop())
	results, err := r.RunFull(context.Background(), Filter{Categories: []string{CategorySystem}})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	for _, res := range results {
		if res.Status != StatusError {
			t.Errorf("%s: status %s, want error without a snapshot", res.ID, res.Status)
		}
	}
}

func TestSummarize_Buckets(t *testing.T) {
	results := []Result{
		{ID: "a", Category: CategorySystem, Priority: PriorityHigh, Status: StatusPassed},
		{ID: "b", Category: CategorySystem, Priority: PriorityCritical, Status: StatusFailed},
		{ID: "c", Category: CategoryNetwork, Priority: PriorityHigh, Status: StatusWarning},
		{ID: "d", Category: CategoryNetwork, Priority: PriorityLow, Status: StatusError},
	}
	s := Summarize(results)
	if s.Total != 4 || s.Passed != 1 || s.Failed != 1 || s.Warnings != 1 || s.Errors != 1 {
		t.Fatalf("summary counts wrong: %+v", s)
	}
	if s.Score != 25 {
		t.Errorf("score = %v, want 25", s.Score)
	}
	if s.IsHealthy {
		t.Error("summary with failures must not be healthy")
	}
	if b := s.ByCategory[CategorySystem]; b.Total != 2 || b.Passed != 1 {
		t.Errorf("system bucket = %+v", b)
	}
	if b := s.ByPriority[PriorityHigh]; b.Total != 2 || b.Passed != 1 {
		t.Errorf("high bucket = %+v", b)
	}
}

func TestRecommendations_AggregateNonPassing(t *testing.T) {
	snap := healthySnapshot()
	snap.Applications[0].Status = models.AppStopped
	r := NewRunner(Deps{Snapshots: &fakeSnapshots{snapshot: snap}}, zap.NewNop())

	if _, err := r.RunFull(context.Background(), Filter{IDs: []string{"critical-apps-running"}}); err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	recs := r.Recommendations()
	if len(recs) == 0 {
		t.Fatal("expected recommendations from the failing test")
	}
	if !strings.Contains(recs[0], "Viewer") {
		t.Errorf("recommendation %q does not name the application", recs[0])
	}
}
