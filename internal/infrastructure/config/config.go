package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// FileEnvVar names the environment variable pointing at an optional config file.
const FileEnvVar = "SHELLBRIDGE_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Terminal  TerminalConfig
	Security  SecurityConfig
	Executor  ExecutorConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT"`
	Host string `envconfig:"HOST"`
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL"`
	Development bool   `envconfig:"LOG_DEV"`
	// AuditPath receives audit entries in addition to the main log when set.
	AuditPath string `envconfig:"AUDIT_LOG_PATH"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED"`
}

// TerminalConfig holds session manager configuration.
type TerminalConfig struct {
	MaxSessions    int           `envconfig:"TERMINAL_MAX_SESSIONS"`
	SessionTimeout time.Duration `envconfig:"TERMINAL_SESSION_TIMEOUT"`
	ReaperInterval time.Duration `envconfig:"TERMINAL_REAPER_INTERVAL"`
	MaxLines       int           `envconfig:"TERMINAL_MAX_LINES"`
	KillGrace      time.Duration `envconfig:"TERMINAL_KILL_GRACE"`
	Shell          string        `envconfig:"TERMINAL_SHELL"`
	Cols           int           `envconfig:"TERMINAL_COLS"`
	Rows           int           `envconfig:"TERMINAL_ROWS"`
	ViewerQueue    int           `envconfig:"TERMINAL_VIEWER_QUEUE"`
}

// SecurityConfig holds command validation policy.
type SecurityConfig struct {
	BlockedCommands  []string `envconfig:"SECURITY_BLOCKED_COMMANDS"`
	AllowedCommands  []string `envconfig:"SECURITY_ALLOWED_COMMANDS"`
	MaxCommandLength int      `envconfig:"SECURITY_MAX_COMMAND_LENGTH"`
}

// ExecutorConfig holds one-shot command execution limits.
type ExecutorConfig struct {
	Timeout        time.Duration `envconfig:"EXEC_TIMEOUT"`
	MaxOutputBytes int           `envconfig:"EXEC_MAX_OUTPUT_BYTES"`
}

// Load builds configuration from defaults, the optional config file named by
// SHELLBRIDGE_CONFIG, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnvVar))
}

// LoadFile is Load with an explicit config file path. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := ApplyFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the session manager cannot work with.
func (c *Config) Validate() error {
	if c.Terminal.MaxSessions <= 0 {
		return fmt.Errorf("invalid config: terminal max sessions must be positive, got %d", c.Terminal.MaxSessions)
	}
	if c.Terminal.MaxLines <= 0 {
		return fmt.Errorf("invalid config: terminal max lines must be positive, got %d", c.Terminal.MaxLines)
	}
	if c.Terminal.SessionTimeout <= 0 || c.Terminal.ReaperInterval <= 0 {
		return fmt.Errorf("invalid config: session timeout and reaper interval must be positive")
	}
	if c.Terminal.Cols <= 0 || c.Terminal.Rows <= 0 {
		return fmt.Errorf("invalid config: terminal size must be positive, got %dx%d", c.Terminal.Cols, c.Terminal.Rows)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "127.0.0.1",
			AllowedOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Terminal: TerminalConfig{
			MaxSessions:    20,
			SessionTimeout: 30 * time.Minute,
			ReaperInterval: time.Minute,
			MaxLines:       1000,
			KillGrace:      5 * time.Second,
			Cols:           80,
			Rows:           24,
			ViewerQueue:    256,
		},
		Security: SecurityConfig{
			BlockedCommands: []string{
				"mkfs*",
				"**/mkfs*",
				"shutdown",
				"reboot",
				"halt",
				"poweroff",
				"init",
			},
			MaxCommandLength: 4096,
		},
		Executor: ExecutorConfig{
			Timeout:        60 * time.Second,
			MaxOutputBytes: 1 << 20,
		},
	}
}
