// Package monitor implements the metrics scheduler: periodic collection
// of machine snapshots from a provider, threshold alerting, and liveness
// heartbeats. The monitor owns the current snapshot and the set of
// watched applications; health scoring and validation read from it but
// never write.
package monitor

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/curator-app/agent/internal/models"
	"github.com/curator-app/agent/internal/provider"
)

// ErrNoProvider is returned by Start when no metrics provider is bound.
var ErrNoProvider = errors.New("no metrics provider configured")

// maxHeartbeatInterval caps the heartbeat period so liveness signals are
// not starved by a long collection interval.
const maxHeartbeatInterval = 60 * time.Second

// collectTimeout bounds one collection cycle's provider calls.
const collectTimeout = 10 * time.Second

// Monitor schedules metric collection and heartbeats. Construct with New,
// then Start/Stop. One Monitor per process; callers pass it explicitly.
type Monitor struct {
	provider provider.Provider
	logger   *zap.Logger

	installationID string
	startedAt      time.Time

	mu         sync.RWMutex
	apps       map[string]models.WatchedApplication
	thresholds models.AlertThresholds
	snapshot   *models.Snapshot
	lastPID    map[string]int32
	restarts   map[string]int
	cancel     context.CancelFunc

	// collecting guards against overlapping cycles: if a cycle is still
	// running when the next tick fires, the tick is skipped.
	collecting atomic.Bool

	onSnapshot  []func(*models.Snapshot)
	onAlerts    []func([]models.Alert)
	onHeartbeat []func(models.Heartbeat)
	onError     []func(error)
}

// New creates a Monitor bound to the given provider. The provider may be
// nil, in which case Start fails with ErrNoProvider. The installation
// identifier is derived once here and is stable for the process lifetime.
func New(p provider.Provider, thresholds models.AlertThresholds, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		provider:       p,
		logger:         logger,
		installationID: newInstallationID(),
		startedAt:      time.Now(),
		apps:           make(map[string]models.WatchedApplication),
		thresholds:     thresholds,
		lastPID:        make(map[string]int32),
		restarts:       make(map[string]int),
	}
}

// newInstallationID hashes hostname, platform, architecture, time, and a
// random salt down to a 16-character token. Regenerated on every process
// start; heartbeat consumers treat it as a process identity.
func newInstallationID() string {
	salt := make([]byte, 8)
	rand.Read(salt)

	hostname, _ := os.Hostname()
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|", hostname, runtime.GOOS, runtime.GOARCH, time.Now().UnixNano())
	h.Write(salt)

	return hex.EncodeToString(h.Sum(nil))[:16]
}

// InstallationID returns the process-stable installation identifier.
func (m *Monitor) InstallationID() string { return m.installationID }

// OnSnapshot registers a callback invoked after each snapshot replacement.
// Delivery is synchronous within the collection cycle; ordering between
// independent subscribers is unspecified.
func (m *Monitor) OnSnapshot(fn func(*models.Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSnapshot = append(m.onSnapshot, fn)
}

// OnAlerts registers a callback invoked when a cycle raises alerts.
func (m *Monitor) OnAlerts(fn func([]models.Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAlerts = append(m.onAlerts, fn)
}

// OnHeartbeat registers a callback invoked on every heartbeat.
func (m *Monitor) OnHeartbeat(fn func(models.Heartbeat)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHeartbeat = append(m.onHeartbeat, fn)
}

// OnError registers a callback invoked when a cycle fails.
func (m *Monitor) OnError(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = append(m.onError, fn)
}

// Start begins periodic collection at the given interval and heartbeats
// at min(interval, 60s). One collection and one heartbeat run
// synchronously before Start returns, so callers observe non-stale data
// immediately. Fails with ErrNoProvider if no provider is bound.
func (m *Monitor) Start(interval time.Duration) error {
	if m.provider == nil {
		return ErrNoProvider
	}
	if interval <= 0 {
		return fmt.Errorf("collection interval must be positive (got %v)", interval)
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return fmt.Errorf("monitor already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	heartbeatInterval := interval
	if heartbeatInterval > maxHeartbeatInterval {
		heartbeatInterval = maxHeartbeatInterval
	}

	// Immediate first collection and heartbeat.
	m.collect(ctx)
	m.heartbeat()

	go m.run(ctx, interval, heartbeatInterval)

	m.logger.Info("Monitor started",
		zap.String("installation_id", m.installationID),
		zap.Duration("collect_interval", interval),
		zap.Duration("heartbeat_interval", heartbeatInterval))
	return nil
}

// run is the scheduling loop: two tickers, one select.
func (m *Monitor) run(ctx context.Context, interval, heartbeatInterval time.Duration) {
	collectTicker := time.NewTicker(interval)
	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer collectTicker.Stop()
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-collectTicker.C:
			m.collect(ctx)
		case <-heartbeatTicker.C:
			m.heartbeat()
		}
	}
}

// Stop cancels both periodic tasks. It does not wait for an in-flight
// cycle; one straggler may complete and publish once more, but no new
// cycle starts afterward. Safe to call when not started.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		m.logger.Info("Monitor stopped")
	}
}

// AddApplication registers (or re-registers, last write wins) a watched
// application. Takes effect on the next collection cycle.
func (m *Monitor) AddApplication(app models.WatchedApplication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.Name] = app
}

// RemoveApplication deletes a watched application. Idempotent.
func (m *Monitor) RemoveApplication(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.apps, name)
	delete(m.lastPID, name)
	delete(m.restarts, name)
}

// WatchedApplications returns a copy of the current watched set.
func (m *Monitor) WatchedApplications() []models.WatchedApplication {
	m.mu.RLock()
	defer m.mu.RUnlock()
	apps := make([]models.WatchedApplication, 0, len(m.apps))
	for _, app := range m.apps {
		apps = append(apps, app)
	}
	return apps
}

// UpdateThresholds merges the patch into the current thresholds,
// effective from the next evaluation.
func (m *Monitor) UpdateThresholds(patch models.ThresholdPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = patch.Apply(m.thresholds)
}

// Thresholds returns the current alert thresholds.
func (m *Monitor) Thresholds() models.AlertThresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds
}

// CurrentSnapshot returns the most recent snapshot, or nil before the
// first collection completes.
func (m *Monitor) CurrentSnapshot() *models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// CollectNow runs a single collection cycle synchronously and returns
// the resulting snapshot. One-shot commands use it to get fresh readings
// without starting the recurring loop.
func (m *Monitor) CollectNow(ctx context.Context) *models.Snapshot {
	m.collect(ctx)
	return m.CurrentSnapshot()
}

// collect runs one collection cycle: fetch all provider readings with
// per-call failure isolation, assemble and atomically publish a snapshot,
// then evaluate alerts against it. A provider failure never kills the
// recurring task; it is logged and surfaced via the error callbacks.
func (m *Monitor) collect(ctx context.Context) {
	if !m.collecting.CompareAndSwap(false, true) {
		m.logger.Debug("Previous collection cycle still running, skipping tick")
		return
	}
	defer m.collecting.Store(false)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("collection cycle panic: %v", r)
			m.logger.Error("Collection cycle failed", zap.Error(err))
			m.notifyError(err)
		}
	}()

	collectCtx, cancelCtx := context.WithTimeout(ctx, collectTimeout)
	defer cancelCtx()

	m.mu.RLock()
	thresholds := m.thresholds
	watched := make([]models.WatchedApplication, 0, len(m.apps))
	for _, app := range m.apps {
		watched = append(watched, app)
	}
	m.mu.RUnlock()

	// The four provider calls run concurrently; each failure is isolated
	// so one bad reading cannot block the others.
	var (
		wg       sync.WaitGroup
		system   *models.SystemMetrics
		network  *models.NetworkInfo
		appStats []models.AppStatus
		displays []models.DisplayStatus
		errs     [4]error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		system, errs[0] = m.provider.GetSystemMetrics(collectCtx)
	}()
	go func() {
		defer wg.Done()
		network, errs[1] = m.provider.GetNetworkInfo(collectCtx)
	}()
	go func() {
		defer wg.Done()
		appStats, errs[2] = m.provider.GetApplicationStatus(collectCtx, watched)
	}()
	go func() {
		defer wg.Done()
		displays, errs[3] = m.provider.GetDisplayInfo(collectCtx)
	}()
	wg.Wait()

	for i, name := range [4]string{"system", "network", "applications", "displays"} {
		if errs[i] != nil {
			m.logger.Warn("Provider call failed",
				zap.String("call", name),
				zap.Error(errs[i]))
			m.notifyError(fmt.Errorf("provider %s: %w", name, errs[i]))
		}
	}

	if system != nil {
		deriveStatuses(system, thresholds)
	}

	snapshot := &models.Snapshot{
		System:       system,
		Network:      network,
		Applications: m.trackRestarts(appStats),
		Displays:     displays,
		Timestamp:    time.Now().UTC(),
	}

	m.mu.Lock()
	m.snapshot = snapshot
	snapshotSubs := append([]func(*models.Snapshot){}, m.onSnapshot...)
	alertSubs := append([]func([]models.Alert){}, m.onAlerts...)
	m.mu.Unlock()

	m.logger.Debug("Snapshot collected", zap.Time("timestamp", snapshot.Timestamp))

	for _, fn := range snapshotSubs {
		fn(snapshot)
	}

	if alerts := EvaluateAlerts(snapshot, thresholds); len(alerts) > 0 {
		m.logger.Warn("Alerts raised", zap.Int("count", len(alerts)))
		for _, fn := range alertSubs {
			fn(alerts)
		}
	}
}

// deriveStatuses tags each present metric against its warning threshold.
func deriveStatuses(s *models.SystemMetrics, t models.AlertThresholds) {
	if s.CPU != nil {
		s.CPU.Status = models.DeriveStatus(s.CPU.Usage, t.CPUUsage)
	}
	if s.Memory != nil {
		s.Memory.Status = models.DeriveStatus(s.Memory.Usage, t.MemoryUsage)
	}
	if s.Disk != nil {
		s.Disk.Status = models.DeriveStatus(s.Disk.Usage, t.DiskUsage)
	}
	if s.Temperature != nil {
		s.Temperature.Status = models.DeriveStatus(s.Temperature.Usage, t.TemperatureCPU)
	}
}

// trackRestarts annotates application statuses with the restart count
// observed over this process's lifetime. A PID change for an application
// that was previously seen counts as one restart.
func (m *Monitor) trackRestarts(statuses []models.AppStatus) []models.AppStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range statuses {
		name := statuses[i].Name
		if statuses[i].Status == models.AppRunning && statuses[i].PID != nil {
			pid := *statuses[i].PID
			if prev, seen := m.lastPID[name]; seen && prev != pid {
				m.restarts[name]++
			}
			m.lastPID[name] = pid
		}
		statuses[i].Restarts = m.restarts[name]
	}
	return statuses
}

// heartbeat publishes the periodic liveness broadcast.
func (m *Monitor) heartbeat() {
	m.mu.RLock()
	snapshot := m.snapshot
	thresholds := m.thresholds
	subs := append([]func(models.Heartbeat){}, m.onHeartbeat...)
	m.mu.RUnlock()

	hb := models.Heartbeat{
		InstallationID: m.installationID,
		Timestamp:      time.Now().UTC(),
		ProcessUptime:  time.Since(m.startedAt).Seconds(),
		OverallStatus:  overallStatus(snapshot, thresholds),
		QuickStats:     quickStats(snapshot),
	}

	m.logger.Debug("Heartbeat",
		zap.String("status", string(hb.OverallStatus)),
		zap.Float64("process_uptime_s", hb.ProcessUptime))

	for _, fn := range subs {
		fn(hb)
	}
}

// overallStatus computes the heartbeat verdict. Precedence: critical when
// any of cpu/memory/disk usage exceeds 95; warning when any metric
// exceeds its configured threshold or a required application is stopped;
// good otherwise.
func overallStatus(s *models.Snapshot, t models.AlertThresholds) models.MetricStatus {
	if s == nil {
		return models.StatusWarning
	}

	if sys := s.System; sys != nil {
		for _, m := range []*models.MetricValue{sys.CPU, sys.Memory, sys.Disk} {
			if m != nil && m.Usage > 95 {
				return models.StatusCritical
			}
		}
		if exceeds(sys.CPU, t.CPUUsage) || exceeds(sys.Memory, t.MemoryUsage) ||
			exceeds(sys.Disk, t.DiskUsage) || exceeds(sys.Temperature, t.TemperatureCPU) {
			return models.StatusWarning
		}
	}

	for _, app := range s.Applications {
		if app.ShouldBeRunning && app.Status != models.AppRunning {
			return models.StatusWarning
		}
	}

	return models.StatusGood
}

func exceeds(m *models.MetricValue, threshold float64) bool {
	return m != nil && m.Usage > threshold
}

// quickStats extracts the compact summary carried by heartbeats.
func quickStats(s *models.Snapshot) models.QuickStats {
	var qs models.QuickStats
	if s == nil {
		return qs
	}
	if sys := s.System; sys != nil {
		if sys.CPU != nil {
			v := sys.CPU.Usage
			qs.CPUUsage = &v
		}
		if sys.Memory != nil {
			v := sys.Memory.Usage
			qs.MemoryUsage = &v
		}
		if sys.Disk != nil {
			v := sys.Disk.Usage
			qs.DiskUsage = &v
		}
	}
	for _, app := range s.Applications {
		if app.ShouldBeRunning {
			qs.AppsWatched++
			if app.Status == models.AppRunning {
				qs.AppsRunning++
			}
		}
	}
	return qs
}

// notifyError delivers an error to the registered error callbacks.
func (m *Monitor) notifyError(err error) {
	m.mu.RLock()
	subs := append([]func(error){}, m.onError...)
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(err)
	}
}
