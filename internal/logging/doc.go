// Package logging provides structured logging for the ReCync client.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the client. It provides both general logging
// functions and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, frame parsing, keepalives)
//   - Info: Normal operations (connections, discovery, state changes)
//   - Warn: Non-fatal issues (connection drops, dropped commands, retries)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Status update",
//	    zap.String("device_id", "216844946"),
//	    zap.Bool("is_on", true),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
// Connection Logging:
//
//	logging.LogConnection(remoteAddr, "connected")
//	logging.LogConnection(remoteAddr, "disconnected")
//
// Frame Logging:
//
//	logging.LogFrame("recv", frameType, payload)
//	logging.LogFrame("send", frameType, payload)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// By default (no level set and RECYNC_LOG_LEVEL unset) logging is silent,
// which keeps CLI command output clean.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
