package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/kardianos/service"

	"github.com/somethingstarted/PrinterFinderInfoGatherer/common/config"
	"github.com/somethingstarted/PrinterFinderInfoGatherer/common/logger"
	commonutil "github.com/somethingstarted/PrinterFinderInfoGatherer/common/util"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultConfigName = "config.toml"

// recentLogEntries is how many log entries are kept in memory and shown
// when an interactive run fails.
const recentLogEntries = 20

func main() {
	configPath := flag.String("config", "", "Configuration file path (searched in the standard locations when empty)")
	generateConfig := flag.Bool("generate-config", false, "Generate default config file and exit")
	serviceCmd := flag.String("service", "", "Service control: install, uninstall, start, stop, status, run")
	jobMode := flag.String("job", "auto", "Job to run: auto, find, count or both")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	quiet := flag.Bool("quiet", false, "Suppress informational output (errors/warnings still shown)")
	flag.BoolVar(quiet, "q", false, "Shorthand for --quiet")
	silent := flag.Bool("silent", false, "Suppress ALL output (complete silence)")
	flag.BoolVar(silent, "s", false, "Shorthand for --silent")
	flag.Parse()

	if *silent {
		commonutil.SetSilentMode(true)
	} else {
		commonutil.SetQuietMode(*quiet)
	}

	if *showVersion {
		fmt.Printf("PrinterFinder Agent %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("Host: %s\n", commonutil.GetHostInfo())
		return
	}

	if *generateConfig {
		path := *configPath
		if path == "" {
			path = defaultConfigName
		}
		if err := WriteDefaultAgentConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at %s\n", path)
		return
	}

	if *serviceCmd != "" {
		handleServiceCommand(*serviceCmd, *configPath)
		return
	}

	if !service.Interactive() {
		runAsService(*configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runInteractive(ctx, *configPath, *jobMode)
	stop()
	os.Exit(code)
}

// loadConfig resolves the config path from the environment, the flag or the
// search paths, and loads it.
func loadConfig(flagPath string) (*AgentConfig, string, error) {
	path := config.ResolveConfigPath("AGENT", flagPath)
	if path == "" {
		found, _, err := config.FindConfigFile(defaultConfigName, "agent")
		if err != nil {
			return nil, "", fmt.Errorf("%w (use -generate-config to create one)", err)
		}
		path = found
	}
	cfg, err := LoadAgentConfig(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// newAppLogger writes to <output>/logs/agent.log. Console output is left to
// the terminal helpers. Debug mode raises the level to at least DEBUG.
func newAppLogger(cfg *AgentConfig) *logger.Logger {
	logDir := ""
	if root, err := cfg.OutputRoot(); err == nil {
		logDir = filepath.Join(root, "logs")
	}
	l := logger.New(logger.LevelFromString(cfg.Logging.Level), logDir, "agent.log", recentLogEntries)
	l.SetConsoleOutput(false)
	l.SetRotationPolicy(logger.RotationPolicy{
		Enabled:    cfg.Logging.MaxSizeMB > 0,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxFiles:   cfg.Logging.MaxFiles,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if cfg.Debug && l.GetLevel() < logger.DEBUG {
		l.SetLevel(logger.DEBUG)
	}
	return l
}

// runInteractive runs the selected jobs once and returns the exit status.
func runInteractive(ctx context.Context, configPath, jobMode string) int {
	commonutil.ShowBanner("PrinterFinder Agent", Version)

	cfg, path, err := loadConfig(configPath)
	if err != nil {
		var missing *MissingKeyError
		if errors.As(err, &missing) {
			commonutil.ShowError(fmt.Sprintf("%s: %v", path, missing))
		} else {
			commonutil.ShowError(fmt.Sprintf("Failed to load config: %v", err))
		}
		return 1
	}

	appLogger := newAppLogger(cfg)
	defer appLogger.Close()
	appLogger.Info("agent starting", "version", Version, "config", path, "host", commonutil.GetHostInfo().String())

	jobs, err := ParseJobMode(jobMode, time.Now(), cfg.DayToRunBoth)
	if err != nil {
		commonutil.ShowError(err.Error())
		return 1
	}

	r, err := newRunner(cfg, appLogger)
	if err != nil {
		commonutil.ShowError(err.Error())
		appLogger.Error("runner setup failed", "error", err)
		return 1
	}

	if err := r.Run(ctx, jobs); err != nil {
		if errors.Is(err, context.Canceled) {
			commonutil.ShowWarning("Interrupted, run logs flushed")
			appLogger.Warn("run interrupted", "jobs", jobs)
		} else {
			commonutil.ShowError(err.Error())
			appLogger.Error("run failed", "jobs", jobs, "error", err)
			commonutil.ShowRecentLog(appLogger.Copy)
		}
		return 1
	}
	return 0
}

// handleServiceCommand processes service install/uninstall/start/stop commands
func handleServiceCommand(cmd, configPath string) {
	prg := &program{configPath: configPath}
	s, err := service.New(prg, getServiceConfig(configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "install":
		commonutil.ShowBanner("PrinterFinder Agent", Version)
		if _, _, err := loadConfig(configPath); err != nil {
			commonutil.ShowError(fmt.Sprintf("Config check failed: %v", err))
			os.Exit(1)
		}
		commonutil.ShowInfo("Setting up directories...")
		if err := setupServiceDirectories(); err != nil {
			commonutil.ShowError(fmt.Sprintf("Failed to setup service directories: %v", err))
			os.Exit(1)
		}
		commonutil.ShowInfo("Installing service...")
		if err := s.Install(); err != nil {
			if !isAlreadyExists(err) {
				commonutil.ShowError(fmt.Sprintf("Failed to install service: %v", err))
				os.Exit(1)
			}
			commonutil.ShowWarning("Service already exists")
		}
		commonutil.ShowSuccess("Service installed. Use '-service start' to start it")

	case "uninstall":
		if err := s.Uninstall(); err != nil {
			commonutil.ShowError(fmt.Sprintf("Failed to uninstall service: %v", err))
			os.Exit(1)
		}
		commonutil.ShowSuccess("Service uninstalled")

	case "start":
		if err := s.Start(); err != nil {
			commonutil.ShowError(fmt.Sprintf("Failed to start service: %v", err))
			os.Exit(1)
		}
		commonutil.ShowSuccess("Service started")

	case "stop":
		commonutil.ShowInfo("Stopping service (may take up to 30 seconds)...")
		if err := s.Stop(); err != nil {
			commonutil.ShowError(fmt.Sprintf("Failed to stop service: %v", err))
			os.Exit(1)
		}
		commonutil.ShowSuccess("Service stopped")

	case "status":
		status, err := s.Status()
		switch {
		case err != nil && status == service.StatusUnknown:
			commonutil.ShowWarning(fmt.Sprintf("Service is not installed (%v)", err))
		case status == service.StatusRunning:
			commonutil.ShowSuccess("Service is running")
		case status == service.StatusStopped:
			commonutil.ShowWarning("Service is installed but not running")
		default:
			commonutil.ShowWarning("Service status unknown")
		}

	case "run":
		if err := s.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Service run failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown service command: %s\n", cmd)
		fmt.Fprintln(os.Stderr, "Valid commands: install, uninstall, start, stop, status, run")
		os.Exit(1)
	}
}

// runAsService starts the agent under service manager control
func runAsService(configPath string) {
	s, err := service.New(&program{configPath: configPath}, getServiceConfig(configPath))
	if err != nil {
		os.Exit(1)
	}
	if err := s.Run(); err != nil {
		os.Exit(1)
	}
}
