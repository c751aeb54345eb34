// Package config provides user configuration management for the ReCync project.
//
// This package manages a YAML-based configuration file that stores the
// cloud account state (user id, access token, hex-encoded login code),
// the relay endpoint, an optional device allow-list, and the log level.
// The configuration follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/recync/config.yaml or $HOME/.config/recync/config.yaml
//   - macOS: $HOME/.config/recync/config.yaml
//   - Windows: %LOCALAPPDATA%\recync\config.yaml
//
// # Security
//
// The file carries credentials (access_token, login_code) and is written
// with user-only permissions. The directory is created 0700, the file 0600.
//
// # Thread Safety
//
// The global config uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
