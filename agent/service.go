package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kardianos/service"

	"github.com/somethingstarted/PrinterFinderInfoGatherer/common/logger"
	commonutil "github.com/somethingstarted/PrinterFinderInfoGatherer/common/util"
)

const serviceName = "PrinterFinderAgent"

// program implements service.Interface
type program struct {
	configPath string
	cfgPath    string
	cfg        *AgentConfig
	appLogger  *logger.Logger
	runner     *runner
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	svcLogger  service.Logger
}

func (p *program) Start(s service.Service) error {
	p.svcLogger, _ = s.Logger(nil)
	p.info("PrinterFinder agent service starting")

	if err := p.prepare(); err != nil {
		p.error(fmt.Sprintf("PrinterFinder agent cannot start: %v", err))
		return err
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})

	go p.run()
	return nil
}

// prepare loads the configuration and builds the job runner. Start returns
// its error so the service manager records a failed start.
func (p *program) prepare() error {
	cfg, path, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}
	appLogger := newAppLogger(cfg)
	r, err := newRunner(cfg, appLogger)
	if err != nil {
		appLogger.Close()
		return err
	}
	p.cfg, p.cfgPath, p.appLogger, p.runner = cfg, path, appLogger, r
	return nil
}

func (p *program) run() {
	defer close(p.done)
	cfg, appLogger, r := p.cfg, p.appLogger, p.runner
	defer appLogger.Close()

	appLogger.Info("service scheduler running", "config", p.cfgPath, "host", commonutil.GetHostInfo().String(), "schedule_time", cfg.ScheduleTime, "day_to_run_both", cfg.DayToRunBoth)
	p.info(fmt.Sprintf("PrinterFinder agent running, jobs scheduled daily at %s", cfg.ScheduleTime))

	runDaily(p.ctx, cfg.ScheduleTime, time.Now, func(ctx context.Context, when time.Time) {
		jobs := JobsFor(when, cfg.DayToRunBoth)
		appLogger.Info("scheduled run", "jobs", jobs)
		if err := r.Run(ctx, jobs); err != nil {
			appLogger.Error("scheduled run failed", "error", err)
		}
		appLogger.Flush()
	})

	p.info("PrinterFinder agent service stopping")
}

func (p *program) Stop(s service.Service) error {
	p.info("PrinterFinder agent service stop requested")
	if p.cancel != nil {
		p.cancel()
	}
	if p.done == nil {
		return nil
	}

	// in-flight hosts finish, then the run logs are flushed
	select {
	case <-p.done:
		p.info("PrinterFinder agent service stopped gracefully")
	case <-time.After(30 * time.Second):
		if p.svcLogger != nil {
			p.svcLogger.Warning("PrinterFinder agent service stopped with timeout")
		}
	}
	return nil
}

func (p *program) info(msg string) {
	if p.svcLogger != nil {
		p.svcLogger.Info(msg)
	}
}

func (p *program) error(msg string) {
	if p.svcLogger != nil {
		p.svcLogger.Error(msg)
	}
}

// serviceWorkingDir is where the service runs from on each platform.
func serviceWorkingDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "PrinterFinder")
	case "darwin":
		return "/Library/Application Support/PrinterFinder"
	default:
		return "/var/lib/printerfinder"
	}
}

// getServiceConfig returns the service configuration for the current platform
func getServiceConfig(configPath string) *service.Config {
	args := []string{"-service", "run"}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
		args = append(args, "-config", configPath)
	}

	return &service.Config{
		Name:             serviceName,
		DisplayName:      "PrinterFinder Agent",
		Description:      "Finds network printers on configured subnets and records their page counters every day.",
		WorkingDirectory: serviceWorkingDir(),
		Arguments:        args,
		Option: service.KeyValue{
			// Windows
			"StartType":              "automatic",
			"DelayedAutoStart":       true,
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",
			"OnFailureResetPeriod":   30,

			// systemd
			"Restart":           "on-failure",
			"RestartSec":        5,
			"SuccessExitStatus": "0 SIGTERM",
			"KillMode":          "mixed",
			"KillSignal":        "SIGTERM",

			// launchd
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}
}

// setupServiceDirectories creates necessary directories for service operation
func setupServiceDirectories() error {
	dir := serviceWorkingDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}
