// Package config provides shared configuration utilities for the printer finder components
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// AppDirName is the directory name used under system and user config roots.
const AppDirName = "PrinterFinder"

// FindConfigFile searches for a config file in multiple platform-appropriate locations
// Returns the path and data if found, or an error if not found in any location
func FindConfigFile(filename string, component string) (string, []byte, error) {
	searchPaths := GetConfigSearchPaths(filename, component)

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("%s not found in any search path", filename)
}

// GetConfigSearchPaths returns an ordered list of paths to search for config files
func GetConfigSearchPaths(filename string, component string) []string {
	var searchPaths []string

	// 1. Component-specific system directory (highest priority for services)
	switch runtime.GOOS {
	case "windows":
		searchPaths = append(searchPaths, filepath.Join(os.Getenv("ProgramData"), AppDirName, component, filename))
	case "darwin":
		searchPaths = append(searchPaths, filepath.Join("/Library/Application Support", AppDirName, component, filename))
	default:
		searchPaths = append(searchPaths, filepath.Join("/etc", strings.ToLower(AppDirName), component, filename))
	}

	// 2. User-specific config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "windows":
			searchPaths = append(searchPaths, filepath.Join(homeDir, "AppData", "Local", AppDirName, component, filename))
		case "darwin":
			searchPaths = append(searchPaths, filepath.Join(homeDir, "Library", "Application Support", AppDirName, component, filename))
		default:
			searchPaths = append(searchPaths, filepath.Join(homeDir, ".config", strings.ToLower(AppDirName), component, filename))
		}
	}

	// 3. Executable directory
	if exePath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(exePath), filename))
	}

	// 4. Current working directory (lowest priority)
	searchPaths = append(searchPaths, filepath.Join(".", filename))

	return searchPaths
}

// ResolveConfigPath picks the config path from <PREFIX>_CONFIG,
// <PREFIX>_CONFIG_PATH, CONFIG or CONFIG_PATH, falling back to flagValue.
func ResolveConfigPath(prefix string, flagValue string) string {
	for _, key := range []string{"CONFIG", "CONFIG_PATH"} {
		if val := GetEnvPrefixed(prefix, key); val != "" {
			return val
		}
	}
	return flagValue
}

// GetEnvPrefixed returns <PREFIX>_<key> when set, otherwise the unprefixed key.
func GetEnvPrefixed(prefix string, key string) string {
	if prefix != "" {
		if val := os.Getenv(prefix + "_" + key); val != "" {
			return val
		}
	}
	return os.Getenv(key)
}

// WriteDefaultTOML writes a default TOML configuration file with the provided structure.
// It refuses to overwrite an existing file.
func WriteDefaultTOML(configPath string, config interface{}) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file %s already exists", configPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadTOML loads a TOML configuration file into the provided structure. The
// returned metadata tells callers which keys were actually present.
func LoadTOML(configPath string, config interface{}) (toml.MetaData, error) {
	if _, err := os.Stat(configPath); err != nil {
		return toml.MetaData{}, fmt.Errorf("config file not found: %w", err)
	}

	md, err := toml.DecodeFile(configPath, config)
	if err != nil {
		return toml.MetaData{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return md, nil
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxFiles   int    `toml:"max_files"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// ApplyLoggingEnvOverrides applies <PREFIX>_LOG_LEVEL or LOG_LEVEL
func ApplyLoggingEnvOverrides(cfg *LoggingConfig, prefix string) {
	if val := GetEnvPrefixed(prefix, "LOG_LEVEL"); val != "" {
		cfg.Level = val
	}
}
