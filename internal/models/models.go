// Package models defines the data structures shared across the agent:
// metric snapshots, watched applications, alert thresholds, alerts, and
// heartbeats. These structures are serialized to JSON for notification
// payloads.
package models

import "time"

// MetricStatus classifies a metric reading.
type MetricStatus string

const (
	StatusGood     MetricStatus = "good"
	StatusWarning  MetricStatus = "warning"
	StatusCritical MetricStatus = "critical"
)

// criticalUsage is the usage level above which a metric is critical
// regardless of its configured warning threshold.
const criticalUsage = 95

// MetricValue is a single 0–100 reading with its derived status tag.
// For temperature the value is degrees Celsius on the same scale.
type MetricValue struct {
	Usage  float64      `json:"usage"`
	Status MetricStatus `json:"status"`
}

// DeriveStatus classifies a usage reading against its configured warning
// threshold. Usage above 95 is critical regardless of the threshold.
func DeriveStatus(usage, threshold float64) MetricStatus {
	switch {
	case usage > criticalUsage:
		return StatusCritical
	case usage > threshold:
		return StatusWarning
	default:
		return StatusGood
	}
}

// NewMetricValue builds a MetricValue with its status derived from the
// configured warning threshold.
func NewMetricValue(usage, threshold float64) *MetricValue {
	return &MetricValue{Usage: usage, Status: DeriveStatus(usage, threshold)}
}

// SystemMetrics holds host-level readings. Nil fields mean the provider
// could not determine the metric this cycle; consumers skip them rather
// than treating them as zero.
type SystemMetrics struct {
	CPU           *MetricValue `json:"cpu,omitempty"`
	Memory        *MetricValue `json:"memory,omitempty"`
	Disk          *MetricValue `json:"disk,omitempty"`
	Temperature   *MetricValue `json:"temperature,omitempty"`
	UptimeSeconds uint64       `json:"uptime_seconds"`
	Load1         float64      `json:"load_1"`
	Load5         float64      `json:"load_5"`
	Load15        float64      `json:"load_15"`
}

// NetworkInterface describes one host interface.
type NetworkInterface struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
	Up        bool     `json:"up"`
	Loopback  bool     `json:"loopback"`
}

// NetworkInfo holds the network view of a snapshot.
type NetworkInfo struct {
	Interfaces     []NetworkInterface `json:"interfaces"`
	PrimaryAddress string             `json:"primary_address"`
	Reachable      bool               `json:"reachable"`
}

// AppRunState describes whether an application process was found.
type AppRunState string

const (
	AppRunning AppRunState = "running"
	AppStopped AppRunState = "stopped"
)

// AppStatus is the per-cycle state of one watched application. Rebuilt
// every collection cycle; never mutated in place.
type AppStatus struct {
	Name            string      `json:"name"`
	Status          AppRunState `json:"status"`
	PID             *int32      `json:"pid,omitempty"`
	ShouldBeRunning bool        `json:"should_be_running"`
	Restarts        int         `json:"restarts"`
}

// DisplayStatus is the per-cycle state of one attached display.
type DisplayStatus struct {
	Name       string `json:"name"`
	Resolution string `json:"resolution,omitempty"`
	Online     bool   `json:"online"`
}

// Snapshot is one consistent point-in-time view of the machine. The
// scheduler replaces the whole value atomically each cycle; readers never
// see a partially updated snapshot. Nil sub-records mean the provider
// call failed this cycle.
type Snapshot struct {
	System       *SystemMetrics  `json:"system,omitempty"`
	Network      *NetworkInfo    `json:"network,omitempty"`
	Applications []AppStatus     `json:"applications"`
	Displays     []DisplayStatus `json:"displays"`
	Timestamp    time.Time       `json:"timestamp"`
}

// WatchedApplication is an operator-registered application the agent
// tracks, keyed by unique name.
type WatchedApplication struct {
	Name            string            `json:"name" yaml:"name"`
	Path            string            `json:"path" yaml:"path"`
	ShouldBeRunning bool              `json:"should_be_running" yaml:"should_be_running"`
	Options         map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// AlertThresholds configures the alert evaluator. Updated atomically via
// the scheduler; read-only everywhere else.
type AlertThresholds struct {
	CPUUsage       float64 `json:"cpu_usage" yaml:"cpu_usage"`
	MemoryUsage    float64 `json:"memory_usage" yaml:"memory_usage"`
	DiskUsage      float64 `json:"disk_usage" yaml:"disk_usage"`
	TemperatureCPU float64 `json:"temperature_cpu" yaml:"temperature_cpu"`
	AppRestarts    int     `json:"app_restarts" yaml:"app_restarts"`
}

// DefaultThresholds returns the default alert thresholds.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		CPUUsage:       90,
		MemoryUsage:    90,
		DiskUsage:      90,
		TemperatureCPU: 85,
		AppRestarts:    5,
	}
}

// ThresholdPatch is a partial threshold update. Nil fields keep the
// existing value.
type ThresholdPatch struct {
	CPUUsage       *float64 `json:"cpu_usage,omitempty"`
	MemoryUsage    *float64 `json:"memory_usage,omitempty"`
	DiskUsage      *float64 `json:"disk_usage,omitempty"`
	TemperatureCPU *float64 `json:"temperature_cpu,omitempty"`
	AppRestarts    *int     `json:"app_restarts,omitempty"`
}

// Apply merges the patch into t, new values overriding old.
func (p ThresholdPatch) Apply(t AlertThresholds) AlertThresholds {
	if p.CPUUsage != nil {
		t.CPUUsage = *p.CPUUsage
	}
	if p.MemoryUsage != nil {
		t.MemoryUsage = *p.MemoryUsage
	}
	if p.DiskUsage != nil {
		t.DiskUsage = *p.DiskUsage
	}
	if p.TemperatureCPU != nil {
		t.TemperatureCPU = *p.TemperatureCPU
	}
	if p.AppRestarts != nil {
		t.AppRestarts = *p.AppRestarts
	}
	return t
}

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

// Alert types produced by the evaluator.
const (
	AlertCPUHigh         = "cpu_high"
	AlertMemoryHigh      = "memory_high"
	AlertDiskHigh        = "disk_high"
	AlertTemperatureHigh = "temperature_high"
	AlertAppStopped      = "app_stopped"
	AlertAppRestarts     = "app_restarts"
)

// Alert is a transient signal that a metric or application crossed a
// threshold. Produced and discarded each cycle; never persisted.
type Alert struct {
	Type        string     `json:"type"`
	Level       AlertLevel `json:"level"`
	Message     string     `json:"message"`
	Value       float64    `json:"value"`
	Threshold   float64    `json:"threshold"`
	Application string     `json:"application,omitempty"`
}

// QuickStats is the compact metric summary carried by a heartbeat.
type QuickStats struct {
	CPUUsage    *float64 `json:"cpu_usage,omitempty"`
	MemoryUsage *float64 `json:"memory_usage,omitempty"`
	DiskUsage   *float64 `json:"disk_usage,omitempty"`
	AppsRunning int      `json:"apps_running"`
	AppsWatched int      `json:"apps_watched"`
}

// Heartbeat is the periodic liveness broadcast, distinct from a full
// metrics cycle.
type Heartbeat struct {
	InstallationID string       `json:"installation_id"`
	Timestamp      time.Time    `json:"timestamp"`
	ProcessUptime  float64      `json:"process_uptime_seconds"`
	OverallStatus  MetricStatus `json:"overall_status"`
	QuickStats     QuickStats   `json:"quick_stats"`
}
