// Local provider — gathers machine state with gopsutil. Sub-readings that
// fail are logged and omitted from the result rather than failing the
// whole call; an error is returned only when nothing could be collected.
package provider

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/curator-app/agent/internal/models"
)

// defaultProbeAddr is dialed to decide network reachability.
const defaultProbeAddr = "1.1.1.1:443"

// probeTimeout bounds the reachability dial.
const probeTimeout = 3 * time.Second

// pseudoFSTypes are filesystem types excluded from disk usage. These are
// virtual/system filesystems and remote mounts that don't represent local
// storage.
var pseudoFSTypes = map[string]bool{
	"devfs": true, "autofs": true, "tmpfs": true, "devtmpfs": true,
	"sysfs": true, "proc": true, "procfs": true, "overlay": true,
	"squashfs": true, "cgroup": true, "cgroup2": true, "ramfs": true,
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true, "9p": true,
	"fuse.sshfs": true, "fuse.rclone": true,
}

// cpuSensorKeys identify CPU temperature sensors across platforms.
// Linux: coretemp_core_0_input, k10temp_tctl_input, acpitz_temp1_input
// macOS: TC0P (CPU proximity), TC0D (CPU die), TCXC (CPU core)
var cpuSensorKeys = []string{
	"cpu", "core", "package",
	"tctl", "tdie", "k10temp", "coretemp",
	"tc0p", "tc0d", "tcxc",
	"acpitz", "zenpower",
}

const maxValidTemp = 150.0

// Local is the gopsutil-backed Provider for the machine the agent runs on.
type Local struct {
	logger    *zap.Logger
	probeAddr string
}

// LocalOption configures a Local provider.
type LocalOption func(*Local)

// WithProbeAddr overrides the address dialed for the reachability check.
func WithProbeAddr(addr string) LocalOption {
	return func(l *Local) { l.probeAddr = addr }
}

// NewLocal creates a provider that reads metrics from the local host.
func NewLocal(logger *zap.Logger, opts ...LocalOption) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Local{
		logger:    logger,
		probeAddr: defaultProbeAddr,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetSystemMetrics gathers cpu/memory/disk/temperature/load/uptime.
// Individual readings that fail are omitted; metric statuses are left for
// the caller to derive against its thresholds.
func (l *Local) GetSystemMetrics(ctx context.Context) (*models.SystemMetrics, error) {
	m := &models.SystemMetrics{}
	collected := false

	if pct, err := cpu.PercentWithContext(ctx, time.Second, false); err == nil && len(pct) > 0 {
		m.CPU = &models.MetricValue{Usage: pct[0]}
		collected = true
	} else if err != nil {
		l.logger.Warn("CPU reading failed", zap.Error(err))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.Memory = &models.MetricValue{Usage: vm.UsedPercent}
		collected = true
	} else {
		l.logger.Warn("Memory reading failed", zap.Error(err))
	}

	if usage, err := l.rootDiskUsage(ctx); err == nil {
		m.Disk = &models.MetricValue{Usage: usage}
		collected = true
	} else {
		l.logger.Warn("Disk reading failed", zap.Error(err))
	}

	if temp, ok := l.cpuTemperature(ctx); ok {
		m.Temperature = &models.MetricValue{Usage: temp}
		collected = true
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		m.UptimeSeconds = uptime
		collected = true
	} else {
		l.logger.Warn("Uptime reading failed", zap.Error(err))
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		m.Load1, m.Load5, m.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	if !collected {
		return nil, fmt.Errorf("no system metrics could be collected")
	}
	return m, nil
}

// rootDiskUsage returns the highest used-percent across real local
// partitions. Inaccessible partitions are skipped.
func (l *Local) rootDiskUsage(ctx context.Context) (float64, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return 0, err
	}

	var worst float64
	found := false
	for _, p := range partitions {
		if pseudoFSTypes[p.Fstype] {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		if !found || usage.UsedPercent > worst {
			worst = usage.UsedPercent
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("no usable partitions found")
	}
	return worst, nil
}

// cpuTemperature returns the hottest CPU sensor reading, if any sensor
// matches and reports a plausible value.
func (l *Local) cpuTemperature(ctx context.Context) (float64, bool) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		l.logger.Debug("Temperature sensors not available", zap.Error(err))
		return 0, false
	}

	var max float64
	found := false
	for _, t := range temps {
		if t.Temperature <= 0 || t.Temperature > maxValidTemp {
			continue
		}
		name := strings.ToLower(t.SensorKey)
		if !matchesSensor(name, cpuSensorKeys) {
			continue
		}
		if !found || t.Temperature > max {
			max = t.Temperature
			found = true
		}
	}
	return max, found
}

// matchesSensor checks if the sensor name contains any of the key substrings.
func matchesSensor(name string, keys []string) bool {
	for _, key := range keys {
		if strings.Contains(name, key) {
			return true
		}
	}
	return false
}

// GetNetworkInfo gathers the interface list, picks the primary address,
// and probes reachability with a bounded TCP dial.
func (l *Local) GetNetworkInfo(ctx context.Context) (*models.NetworkInfo, error) {
	ifaces, err := gopsnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	info := &models.NetworkInfo{}
	for _, iface := range ifaces {
		ni := models.NetworkInterface{Name: iface.Name}
		for _, flag := range iface.Flags {
			switch flag {
			case "up":
				ni.Up = true
			case "loopback":
				ni.Loopback = true
			}
		}
		for _, addr := range iface.Addrs {
			ni.Addresses = append(ni.Addresses, addr.Addr)
		}
		info.Interfaces = append(info.Interfaces, ni)

		if info.PrimaryAddress == "" && ni.Up && !ni.Loopback {
			if ip := firstIPv4(ni.Addresses); ip != "" {
				info.PrimaryAddress = ip
			}
		}
	}

	info.Reachable = l.probeReachability()
	return info, nil
}

// firstIPv4 returns the first global IPv4 address in CIDR-notation list.
func firstIPv4(addrs []string) string {
	for _, a := range addrs {
		ip, _, err := net.ParseCIDR(a)
		if err != nil {
			ip = net.ParseIP(a)
		}
		if ip == nil || ip.To4() == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		return ip.String()
	}
	return ""
}

// probeReachability dials the probe address with a short timeout.
func (l *Local) probeReachability() bool {
	conn, err := net.DialTimeout("tcp", l.probeAddr, probeTimeout)
	if err != nil {
		l.logger.Debug("Reachability probe failed", zap.Error(err))
		return false
	}
	conn.Close()
	return true
}

// GetApplicationStatus scans the process table once and resolves each
// watched application by name or executable path match. Individual
// process read errors are skipped.
func (l *Local) GetApplicationStatus(ctx context.Context, apps []models.WatchedApplication) ([]models.AppStatus, error) {
	if len(apps) == 0 {
		return nil, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	type procEntry struct {
		pid  int32
		name string
		exe  string
	}
	entries := make([]procEntry, 0, len(procs))
	for _, p := range procs {
		name, _ := p.NameWithContext(ctx)
		exe, _ := p.ExeWithContext(ctx)
		if name == "" && exe == "" {
			continue
		}
		entries = append(entries, procEntry{pid: p.Pid, name: name, exe: exe})
	}

	statuses := make([]models.AppStatus, 0, len(apps))
	for _, app := range apps {
		status := models.AppStatus{
			Name:            app.Name,
			Status:          models.AppStopped,
			ShouldBeRunning: app.ShouldBeRunning,
		}
		for _, e := range entries {
			if matchesApplication(app, e.name, e.exe) {
				pid := e.pid
				status.Status = models.AppRunning
				status.PID = &pid
				break
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// matchesApplication reports whether a process matches a watched
// application by case-insensitive name or by executable path prefix.
func matchesApplication(app models.WatchedApplication, procName, procExe string) bool {
	if procName != "" && strings.EqualFold(procName, app.Name) {
		return true
	}
	if app.Path != "" && procExe != "" && strings.HasPrefix(procExe, app.Path) {
		return true
	}
	return false
}

// GetDisplayInfo dispatches to the platform-specific display probe.
func (l *Local) GetDisplayInfo(ctx context.Context) ([]models.DisplayStatus, error) {
	return detectDisplays(ctx)
}
