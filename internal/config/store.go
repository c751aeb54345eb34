package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "recync"
	configFile = "config.yaml"
)

var (
	// Global config instance (loaded lazily)
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigErr  error

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/recync or $HOME/.config/recync
//   - macOS: $HOME/.config/recync (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\recync
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		// Linux and other Unix-like systems: Use XDG_CONFIG_HOME or $HOME/.config
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// ensureConfigDir ensures the configuration directory exists.
func ensureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	// User-only permissions, the file carries credentials
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// Load loads the configuration from disk.
// If the file doesn't exist, returns a new default config.
// Thread-safe - multiple calls will return the same instance.
func Load() (*Config, error) {
	globalConfigOnce.Do(func() {
		globalConfig, globalConfigErr = loadFromDisk()
	})
	return globalConfig, globalConfigErr
}

// loadFromDisk performs the actual file loading.
func loadFromDisk() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return NewConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML configuration document and fills in defaults for
// omitted sections.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", cfg.Version)
	}

	defaults := NewConfig()
	if cfg.Cloud == nil {
		cfg.Cloud = defaults.Cloud
	} else {
		if cfg.Cloud.Host == "" {
			cfg.Cloud.Host = defaults.Cloud.Host
		}
		if cfg.Cloud.Port == 0 {
			cfg.Cloud.Port = defaults.Cloud.Port
		}
		if cfg.Cloud.APIBase == "" {
			cfg.Cloud.APIBase = defaults.Cloud.APIBase
		}
	}

	return &cfg, nil
}

// Save saves the configuration to disk.
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := ensureConfigDir(); err != nil {
		return fmt.Errorf("failed to ensure config directory exists: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ReCync Configuration File
# This file stores the cloud account state for the relay connection.
#
# Security Note: access_token and login_code are credentials. Keep this
# file private (it is written with user-only permissions).
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Reload reloads the configuration from disk, discarding any in-memory
// changes. This is useful for reading changes made by another process.
func Reload() (*Config, error) {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	globalConfigOnce = sync.Once{}
	return Load()
}
