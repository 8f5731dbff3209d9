// Package main is the entry point for the Curator monitoring agent.
// It loads configuration, starts the metrics monitor with webhook
// notifications, and runs as either a Windows service or a standalone
// foreground process. One-shot verbs (-validate, -health) run a single
// collection cycle and print their report instead of looping.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/curator-app/agent/internal/autostart"
	"github.com/curator-app/agent/internal/config"
	"github.com/curator-app/agent/internal/health"
	"github.com/curator-app/agent/internal/monitor"
	"github.com/curator-app/agent/internal/notify"
	"github.com/curator-app/agent/internal/provider"
	"github.com/curator-app/agent/internal/service"
	"github.com/curator-app/agent/internal/settings"
	"github.com/curator-app/agent/internal/validation"
)

// agentLabel identifies the agent's own launch entry across platforms.
const agentLabel = "com.curator.agent"

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: auto-discover)")
	showVersion = flag.Bool("version", false, "Show version and exit")
	runValidate = flag.Bool("validate", false, "Run deployment validation tests and exit")
	showHealth  = flag.Bool("health", false, "Print the health score report and exit")
	interval    = flag.Duration("interval", 0, "Override the metrics collection interval")
	logLevel    = flag.String("log-level", "", "Override the log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("curator-agent %s\n", version)
		os.Exit(0)
	}

	overrides := config.CLIOverrides{
		Interval: *interval,
		LogLevel: *logLevel,
	}
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadLayered(overrides, embeddedConfig, *configPath)
	} else {
		cfg, err = config.LoadLayered(overrides, embeddedConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting Curator Agent",
		zap.String("version", version),
		zap.String("installation", cfg.Installation.Name))

	app := buildAgent(cfg, logger)

	switch {
	case *runValidate:
		os.Exit(app.validate())
	case *showHealth:
		os.Exit(app.healthReport())
	}

	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		svc := service.New(logger, app.run)
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	app.run(ctx)
	logger.Info("Agent stopped")
}

// agent holds the wired components shared by the run loop and the
// one-shot verbs.
type agent struct {
	cfg      *config.Config
	logger   *zap.Logger
	monitor  *monitor.Monitor
	verifier settings.Verifier
	runner   *validation.Runner
}

// buildAgent wires the monitor, notifier, and validation runner from the
// loaded configuration.
func buildAgent(cfg *config.Config, logger *zap.Logger) *agent {
	prov := provider.NewLocal(logger)
	mon := monitor.New(prov, cfg.Monitoring.Thresholds, logger)
	for _, app := range cfg.Applications {
		mon.AddApplication(app)
	}

	notifier := notify.New(cfg.Notifications, mon.InstallationID(), logger)
	mon.OnAlerts(notifier.NotifyAlerts)
	mon.OnHeartbeat(notifier.NotifyHeartbeat)

	verifier := settings.NewSystem(logger)

	store, err := config.NewStore(cfg, config.Locate())
	if err != nil {
		logger.Fatal("Failed to initialize config store", zap.Error(err))
	}

	runner := validation.NewRunner(validation.Deps{
		Snapshots: mon,
		Store:     store,
		Settings:  verifier,
		Autostart: []autostart.Manager{autostart.New(agentLabel, autostart.SystemMode)},
	}, logger)

	return &agent{
		cfg:      cfg,
		logger:   logger,
		monitor:  mon,
		verifier: verifier,
		runner:   runner,
	}
}

// run starts the recurring monitoring loop and blocks until the context
// is cancelled.
func (a *agent) run(ctx context.Context) {
	if !a.cfg.Monitoring.Enabled {
		a.logger.Warn("Monitoring is disabled, nothing to do")
		<-ctx.Done()
		return
	}

	if err := a.monitor.Start(a.cfg.Monitoring.Interval.Duration); err != nil {
		a.logger.Fatal("Failed to start monitor", zap.Error(err))
	}
	a.logger.Info("Agent running",
		zap.String("installation_id", a.monitor.InstallationID()),
		zap.Duration("interval", a.cfg.Monitoring.Interval.Duration))

	<-ctx.Done()
	a.monitor.Stop()
}

// validate runs one collection cycle, executes the full validation
// registry, and prints the report. Returns the process exit code.
func (a *agent) validate() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a.monitor.CollectNow(ctx)
	results, err := a.runner.RunFull(ctx, validation.Filter{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed to run: %v\n", err)
		return 1
	}

	for _, res := range results {
		fmt.Printf("[%-7s] %-32s %s\n", statusTag(res.Status), res.Name, res.Message)
	}

	summary := validation.Summarize(results)
	fmt.Printf("\n%d tests: %d passed, %d failed, %d warnings, %d errors (score %.0f)\n",
		summary.Total, summary.Passed, summary.Failed, summary.Warnings, summary.Errors, summary.Score)

	if recs := a.runner.Recommendations(); len(recs) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range recs {
			fmt.Printf("  - %s\n", rec)
		}
	}

	if !summary.IsHealthy {
		return 1
	}
	return 0
}

// healthReport runs one collection cycle, scores the machine, and prints
// the report as JSON. Returns the process exit code.
func (a *agent) healthReport() int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	snapshot := a.monitor.CollectNow(ctx)
	score := health.Score(snapshot, health.Input{
		Monitoring:    a.cfg.Monitoring,
		Notifications: a.cfg.Notifications,
		Installation:  a.cfg.Installation,
		Security:      a.securityState(ctx),
	})

	out, err := json.MarshalIndent(score, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render health report: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// securityState probes the OS security posture for the health scorer.
// Probe failures leave the corresponding field nil (unknown).
func (a *agent) securityState(ctx context.Context) health.SecurityState {
	var state health.SecurityState

	if integrity, err := a.verifier.CheckIntegrityProtectionStatus(ctx); err == nil {
		state.IntegrityProtection = &integrity.Enabled
	}

	checks, err := a.verifier.VerifySettings(ctx, []string{
		settings.SettingFirewall,
		settings.SettingAppAllowlist,
	})
	if err != nil {
		return state
	}
	for _, c := range checks {
		if c.Status == settings.StatusError {
			continue
		}
		applied := c.Status == settings.StatusApplied
		switch c.Setting {
		case settings.SettingFirewall:
			state.Firewall = &applied
		case settings.SettingAppAllowlist:
			state.AppAllowlisting = &applied
		}
	}
	return state
}

func statusTag(s validation.TestStatus) string {
	switch s {
	case validation.StatusPassed:
		return "PASS"
	case validation.StatusWarning:
		return "WARN"
	case validation.StatusError:
		return "ERROR"
	default:
		return "FAIL"
	}
}

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
