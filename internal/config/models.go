package config

import (
	"encoding/hex"
	"fmt"

	"github.com/muurk/recync/internal/urls"
)

// Config represents the entire user configuration file.
// This stores the cloud account state and application preferences.
type Config struct {
	Version  int    `yaml:"version"`
	Cloud    *Cloud `yaml:"cloud,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"` // overrides RECYNC_LOG_LEVEL when set

	// Devices is the allow-list of mesh device ids to act on.
	// Empty means every discovered device is of interest.
	Devices []uint32 `yaml:"devices,omitempty"`
}

// Cloud represents the cloud account and relay endpoint settings.
// AccessToken and LoginCode come from the account login flow; the login
// code is the opaque binary credential sent raw on relay connect,
// stored hex-encoded.
type Cloud struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	APIBase     string `yaml:"api_base,omitempty"`
	UserID      string `yaml:"user_id,omitempty"`
	AccessToken string `yaml:"access_token,omitempty"`
	LoginCode   string `yaml:"login_code,omitempty"` // hex-encoded
}

// NewConfig creates a new Config with default values pointing at the
// production cloud.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Cloud: &Cloud{
			Host:    urls.CloudServerHost,
			Port:    urls.CloudServerPort,
			APIBase: urls.APIBase,
		},
	}
}

// LoginCodeBytes decodes the stored hex login code into the raw
// credential written on connect.
func (c *Cloud) LoginCodeBytes() ([]byte, error) {
	if c.LoginCode == "" {
		return nil, fmt.Errorf("no login code configured")
	}
	code, err := hex.DecodeString(c.LoginCode)
	if err != nil {
		return nil, fmt.Errorf("malformed login code: %w", err)
	}
	return code, nil
}

// Validate checks the parts of the configuration every command needs.
func (c *Config) Validate() error {
	if c.Cloud == nil {
		return fmt.Errorf("no cloud section configured")
	}
	if c.Cloud.Host == "" || c.Cloud.Port == 0 {
		return fmt.Errorf("cloud host and port must be set")
	}
	return nil
}
