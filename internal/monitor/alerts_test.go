package monitor

import (
	"testing"

	"github.com/curator-app/agent/internal/models"
)

func snapshotWithUsage(cpu, memory, disk float64) *models.Snapshot {
	return &models.Snapshot{
		System: &models.SystemMetrics{
			CPU:    &models.MetricValue{Usage: cpu},
			Memory: &models.MetricValue{Usage: memory},
			Disk:   &models.MetricValue{Usage: disk},
		},
	}
}

func TestEvaluateAlerts_AllHealthy(t *testing.T) {
	s := snapshotWithUsage(50, 50, 50)
	s.Applications = []models.AppStatus{
		{Name: "Viewer", Status: models.AppRunning, ShouldBeRunning: true},
	}

	if alerts := EvaluateAlerts(s, models.DefaultThresholds()); len(alerts) != 0 {
		t.Errorf("expected no alerts, got %v", alerts)
	}
}

func TestEvaluateAlerts_CPUWarning(t *testing.T) {
	alerts := EvaluateAlerts(snapshotWithUsage(96, 50, 50), models.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Type != models.AlertCPUHigh || a.Level != models.LevelWarning {
		t.Errorf("got %s/%s, want cpu_high/warning", a.Type, a.Level)
	}
	if a.Value != 96 || a.Threshold != 90 {
		t.Errorf("value/threshold = %v/%v, want 96/90", a.Value, a.Threshold)
	}
}

func TestEvaluateAlerts_MemoryWarning(t *testing.T) {
	alerts := EvaluateAlerts(snapshotWithUsage(50, 91, 50), models.DefaultThresholds())
	if len(alerts) != 1 || alerts[0].Type != models.AlertMemoryHigh || alerts[0].Level != models.LevelWarning {
		t.Fatalf("expected one memory_high warning, got %v", alerts)
	}
}

func TestEvaluateAlerts_DiskIsCritical(t *testing.T) {
	alerts := EvaluateAlerts(snapshotWithUsage(50, 50, 91), models.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != models.AlertDiskHigh || alerts[0].Level != models.LevelCritical {
		t.Errorf("got %s/%s, want disk_high/critical", alerts[0].Type, alerts[0].Level)
	}
}

func TestEvaluateAlerts_RulesAreIndependent(t *testing.T) {
	alerts := EvaluateAlerts(snapshotWithUsage(96, 96, 96), models.DefaultThresholds())
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d: %v", len(alerts), alerts)
	}
}

func TestEvaluateAlerts_AbsentMetricsSkipped(t *testing.T) {
	s := &models.Snapshot{System: &models.SystemMetrics{}}
	if alerts := EvaluateAlerts(s, models.DefaultThresholds()); len(alerts) != 0 {
		t.Errorf("absent metrics must not alert, got %v", alerts)
	}

	if alerts := EvaluateAlerts(&models.Snapshot{}, models.DefaultThresholds()); len(alerts) != 0 {
		t.Errorf("missing system record must not alert, got %v", alerts)
	}

	if alerts := EvaluateAlerts(nil, models.DefaultThresholds()); alerts != nil {
		t.Errorf("nil snapshot must not alert, got %v", alerts)
	}
}

func TestEvaluateAlerts_StoppedApplication(t *testing.T) {
	s := &models.Snapshot{
		Applications: []models.AppStatus{
			{Name: "Viewer", Status: models.AppStopped, ShouldBeRunning: true},
		},
	}
	alerts := EvaluateAlerts(s, models.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Type != models.AlertAppStopped || a.Level != models.LevelCritical {
		t.Errorf("got %s/%s, want app_stopped/critical", a.Type, a.Level)
	}
	if a.Application != "Viewer" {
		t.Errorf("Application = %q, want \"Viewer\"", a.Application)
	}
}

func TestEvaluateAlerts_OptionalAppDoesNotAlert(t *testing.T) {
	s := &models.Snapshot{
		Applications: []models.AppStatus{
			{Name: "X", Status: models.AppStopped, ShouldBeRunning: false},
		},
	}
	if alerts := EvaluateAlerts(s, models.DefaultThresholds()); len(alerts) != 0 {
		t.Errorf("optional stopped app must not alert, got %v", alerts)
	}
}

func TestEvaluateAlerts_RestartChurn(t *testing.T) {
	s := &models.Snapshot{
		Applications: []models.AppStatus{
			{Name: "Viewer", Status: models.AppRunning, ShouldBeRunning: true, Restarts: 6},
		},
	}
	alerts := EvaluateAlerts(s, models.DefaultThresholds())
	if len(alerts) != 1 || alerts[0].Type != models.AlertAppRestarts || alerts[0].Level != models.LevelWarning {
		t.Fatalf("expected one app_restarts warning, got %v", alerts)
	}
}

func TestEvaluateAlerts_Temperature(t *testing.T) {
	s := &models.Snapshot{
		System: &models.SystemMetrics{
			Temperature: &models.MetricValue{Usage: 88},
		},
	}
	alerts := EvaluateAlerts(s, models.DefaultThresholds())
	if len(alerts) != 1 || alerts[0].Type != models.AlertTemperatureHigh || alerts[0].Level != models.LevelWarning {
		t.Fatalf("expected one temperature_high warning, got %v", alerts)
	}
}
