// Package config provides 12-factor configuration management for shellbridge.
//
// Configuration is assembled from three layers, later layers winning:
//   - Defaults (Default)
//   - An optional YAML or TOML file named by SHELLBRIDGE_CONFIG
//   - Environment variables
//
// CLI flags can override the result for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level, output format and audit log path
//   - RateLimit: Per-IP rate limiting configuration
//   - Terminal: Session limits, idle timeout, scrollback size
//   - Security: Command validation policy
//   - Executor: One-shot command limits
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV, AUDIT_LOG_PATH
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - TERMINAL_MAX_SESSIONS, TERMINAL_SESSION_TIMEOUT, TERMINAL_REAPER_INTERVAL,
//     TERMINAL_MAX_LINES, TERMINAL_KILL_GRACE, TERMINAL_SHELL, TERMINAL_COLS,
//     TERMINAL_ROWS, TERMINAL_VIEWER_QUEUE
//   - SECURITY_BLOCKED_COMMANDS, SECURITY_ALLOWED_COMMANDS, SECURITY_MAX_COMMAND_LENGTH
//   - EXEC_TIMEOUT, EXEC_MAX_OUTPUT_BYTES
package config
