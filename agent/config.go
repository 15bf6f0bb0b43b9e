package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/somethingstarted/PrinterFinderInfoGatherer/agent/scanner"
	"github.com/somethingstarted/PrinterFinderInfoGatherer/agent/storage"
	"github.com/somethingstarted/PrinterFinderInfoGatherer/common/config"
)

// ConfigSchemaVersion is the config layout this build writes.
const ConfigSchemaVersion = "1.0.0"

// supportedSchema accepts every 1.x config.
const supportedSchema = ">= 1.0.0, < 2.0.0"

// debugMonthYearLayout is the MM-YYYY form of debug_month_year.
const debugMonthYearLayout = "01-2006"

// AgentConfig represents the agent configuration
type AgentConfig struct {
	SchemaVersion      string               `toml:"schema_version"`
	Debug              bool                 `toml:"debug"`
	Subnets            []string             `toml:"subnets"`
	KnownPrinters      []string             `toml:"known_printers"`
	DateFilenameOffset int                  `toml:"date_filename_offset"`
	DayToRunBoth       int                  `toml:"day_to_run_both"`
	ScheduleTime       string               `toml:"schedule_time"`
	OutputDir          string               `toml:"output_dir"`
	DebugDate          bool                 `toml:"debug_date"`
	DebugMonthYear     string               `toml:"debug_month_year"`
	OIDTablePath       string               `toml:"oid_table_path"`
	SNMP               SNMPConfig           `toml:"snmp"`
	Liveness           LivenessConfig       `toml:"liveness"`
	Scan               ScanConfig           `toml:"scan"`
	Classify           ClassifyConfig       `toml:"classify"`
	Logging            config.LoggingConfig `toml:"logging"`
}

// SNMPConfig holds SNMP client settings
type SNMPConfig struct {
	Community string `toml:"community"`
	Port      int    `toml:"port"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// LivenessConfig controls the ping probe and the address skip policy.
type LivenessConfig struct {
	TimeoutMs      int   `toml:"timeout_ms"`
	Privileged     bool  `toml:"privileged"`
	SkipLastOctets []int `toml:"skip_last_octets"`
}

// ScanConfig tunes discovery.
type ScanConfig struct {
	Workers       int  `toml:"workers"`
	MDNSHostnames bool `toml:"mdns_hostnames"`
	MDNSTimeoutMs int  `toml:"mdns_timeout_ms"`
}

// ClassifyConfig holds the operator-maintained model lists. ColorModels keys
// are exact model strings.
type ClassifyConfig struct {
	IgnoreModels []string        `toml:"ignore_models"`
	ColorModels  map[string]bool `toml:"color_models"`
}

// MissingKeyError reports a required configuration key absent from the file.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("configuration is missing required key %q", e.Key)
}

// requiredKeys must be present in every config file.
var requiredKeys = [][]string{
	{"subnets"},
	{"known_printers"},
	{"snmp", "community"},
}

// DefaultAgentConfig returns agent configuration with sensible defaults
func DefaultAgentConfig() *AgentConfig {
	rules := scanner.DefaultClassifierRules()
	skip := scanner.DefaultSkipPolicy()
	return &AgentConfig{
		SchemaVersion:      ConfigSchemaVersion,
		Subnets:            []string{},
		KnownPrinters:      []string{},
		DateFilenameOffset: 0,
		DayToRunBoth:       1,
		ScheduleTime:       "06:00",
		DebugMonthYear:     "",
		SNMP: SNMPConfig{
			Community: "public",
			Port:      scanner.DefaultSNMPPort,
			TimeoutMs: int(scanner.DefaultSNMPTimeout / time.Millisecond),
		},
		Liveness: LivenessConfig{
			TimeoutMs:      int(scanner.DefaultPingTimeout / time.Millisecond),
			SkipLastOctets: skip.LastOctets,
		},
		Scan: ScanConfig{
			Workers:       1,
			MDNSHostnames: false,
			MDNSTimeoutMs: 3000,
		},
		Classify: ClassifyConfig{
			IgnoreModels: rules.IgnoreModels,
			ColorModels:  rules.ColorModels,
		},
		Logging: config.LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxFiles:   10,
			MaxAgeDays: 30,
		},
	}
}

// LoadAgentConfig loads configuration from TOML file with environment variable overrides.
// A required key absent from the file yields *MissingKeyError.
func LoadAgentConfig(configPath string) (*AgentConfig, error) {
	cfg := DefaultAgentConfig()
	// a color_models table in the file replaces the built-in one instead of
	// merging into it
	cfg.Classify.ColorModels = nil

	md, err := config.LoadTOML(configPath, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Classify.ColorModels == nil {
		cfg.Classify.ColorModels = scanner.DefaultClassifierRules().ColorModels
	}

	applyEnvOverrides(cfg)

	if err := checkRequired(md, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkRequired(md toml.MetaData, cfg *AgentConfig) error {
	for _, key := range requiredKeys {
		if md.IsDefined(key...) {
			continue
		}
		// the community may come from the environment instead
		if strings.Join(key, ".") == "snmp.community" && os.Getenv("SNMP_COMMUNITY") != "" {
			continue
		}
		return &MissingKeyError{Key: strings.Join(key, ".")}
	}
	return nil
}

func applyEnvOverrides(cfg *AgentConfig) {
	if val := os.Getenv("SNMP_COMMUNITY"); val != "" {
		cfg.SNMP.Community = val
	}
	if val := os.Getenv("SNMP_TIMEOUT_MS"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			cfg.SNMP.TimeoutMs = timeout
		}
	}
	if val := os.Getenv("PRINTER_OUTPUT_DIR"); val != "" {
		cfg.OutputDir = val
	}
	if val := os.Getenv("SCAN_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil {
			cfg.Scan.Workers = workers
		}
	}
	config.ApplyLoggingEnvOverrides(&cfg.Logging, "AGENT")
}

// Validate checks values that would otherwise fail mid-run.
func (c *AgentConfig) Validate() error {
	if c.SchemaVersion != "" {
		v, err := semver.NewVersion(strings.TrimPrefix(c.SchemaVersion, "v"))
		if err != nil {
			return fmt.Errorf("invalid schema_version %q: %w", c.SchemaVersion, err)
		}
		constraint, err := semver.NewConstraint(supportedSchema)
		if err != nil {
			return err
		}
		if !constraint.Check(v) {
			return fmt.Errorf("schema_version %s is not supported (want %s)", v, supportedSchema)
		}
	}

	for _, s := range c.Subnets {
		if _, err := scanner.ParseSubnet(s); err != nil {
			return fmt.Errorf("subnets: %w", err)
		}
	}
	if _, err := scanner.ParseAddresses(c.KnownPrinters); err != nil {
		return fmt.Errorf("known_printers: %w", err)
	}
	if strings.TrimSpace(c.SNMP.Community) == "" {
		return &MissingKeyError{Key: "snmp.community"}
	}
	if c.SNMP.Port < 0 || c.SNMP.Port > 65535 {
		return fmt.Errorf("snmp.port %d out of range", c.SNMP.Port)
	}
	if c.DateFilenameOffset < 0 {
		return fmt.Errorf("date_filename_offset must not be negative, got %d", c.DateFilenameOffset)
	}
	if _, _, err := parseClock(c.ScheduleTime); err != nil {
		return fmt.Errorf("schedule_time: %w", err)
	}
	if c.DebugDate {
		if _, err := time.ParseInLocation(debugMonthYearLayout, c.DebugMonthYear, time.Local); err != nil {
			return fmt.Errorf("debug_month_year %q must be MM-YYYY: %w", c.DebugMonthYear, err)
		}
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	for _, o := range c.Liveness.SkipLastOctets {
		if o < 0 || o > 255 {
			return fmt.Errorf("liveness.skip_last_octets: %d is not an octet", o)
		}
	}
	return nil
}

// AsOf returns the date partitions are computed from: now, or the first of
// debug_month_year when debug_date is set.
func (c *AgentConfig) AsOf(now time.Time) time.Time {
	if c.DebugDate {
		if t, err := time.ParseInLocation(debugMonthYearLayout, c.DebugMonthYear, now.Location()); err == nil {
			return t
		}
	}
	return now
}

// Partition is the monthly file set a run at now writes to.
func (c *AgentConfig) Partition(now time.Time) storage.Partition {
	return storage.PartitionFor(c.AsOf(now), c.DateFilenameOffset)
}

// OutputRoot returns output_dir or the platform default.
func (c *AgentConfig) OutputRoot() (string, error) {
	if c.OutputDir != "" {
		return c.OutputDir, nil
	}
	return storage.GetDefaultOutputDir()
}

// Targets returns what discovery sweeps: the known printer list in debug
// mode, one target per subnet otherwise.
func (c *AgentConfig) Targets() ([]scanner.Target, error) {
	if c.Debug {
		addrs, err := scanner.ParseAddresses(c.KnownPrinters)
		if err != nil {
			return nil, err
		}
		return []scanner.Target{scanner.ListTarget("known printers", addrs)}, nil
	}
	targets := make([]scanner.Target, 0, len(c.Subnets))
	for _, s := range c.Subnets {
		subnet, err := scanner.ParseSubnet(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, scanner.SubnetTarget(subnet))
	}
	return targets, nil
}

// SNMPSettings converts the [snmp] table for the querier.
func (c *AgentConfig) SNMPSettings() scanner.SNMPConfig {
	return scanner.SNMPConfig{
		Community: c.SNMP.Community,
		Port:      uint16(c.SNMP.Port),
		Timeout:   time.Duration(c.SNMP.TimeoutMs) * time.Millisecond,
	}
}

// ClassifierRules converts the [classify] table.
func (c *AgentConfig) ClassifierRules() scanner.ClassifierRules {
	return scanner.ClassifierRules{
		IgnoreModels: c.Classify.IgnoreModels,
		ColorModels:  c.Classify.ColorModels,
	}
}

// SkipPolicy converts liveness.skip_last_octets.
func (c *AgentConfig) SkipPolicy() scanner.SkipPolicy {
	return scanner.SkipPolicy{LastOctets: c.Liveness.SkipLastOctets}
}

// CounterOIDs returns the counter tables, read from oid_table_path when set.
func (c *AgentConfig) CounterOIDs() (scanner.CounterOIDs, error) {
	if c.OIDTablePath == "" {
		return scanner.DefaultCounterOIDs(), nil
	}
	return scanner.LoadCounterOIDs(c.OIDTablePath)
}

// WriteDefaultAgentConfig writes a default agent configuration file
func WriteDefaultAgentConfig(configPath string) error {
	cfg := DefaultAgentConfig()
	return config.WriteDefaultTOML(configPath, cfg)
}
