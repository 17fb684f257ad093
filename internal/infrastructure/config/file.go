package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config for file decoding. Pointer fields distinguish
// "absent" from zero values so only keys present in the file override.
type fileConfig struct {
	Server *struct {
		Port           *string  `yaml:"port" toml:"port"`
		Host           *string  `yaml:"host" toml:"host"`
		AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
	} `yaml:"server" toml:"server"`

	Logging *struct {
		Level       *string `yaml:"level" toml:"level"`
		Development *bool   `yaml:"development" toml:"development"`
		AuditPath   *string `yaml:"audit_path" toml:"audit_path"`
	} `yaml:"logging" toml:"logging"`

	RateLimit *struct {
		RequestsPerSecond *int  `yaml:"rps" toml:"rps"`
		Burst             *int  `yaml:"burst" toml:"burst"`
		Enabled           *bool `yaml:"enabled" toml:"enabled"`
	} `yaml:"rate_limit" toml:"rate_limit"`

	Terminal *struct {
		MaxSessions    *int    `yaml:"max_sessions" toml:"max_sessions"`
		SessionTimeout *string `yaml:"session_timeout" toml:"session_timeout"`
		ReaperInterval *string `yaml:"reaper_interval" toml:"reaper_interval"`
		MaxLines       *int    `yaml:"max_lines" toml:"max_lines"`
		KillGrace      *string `yaml:"kill_grace" toml:"kill_grace"`
		Shell          *string `yaml:"shell" toml:"shell"`
		Cols           *int    `yaml:"cols" toml:"cols"`
		Rows           *int    `yaml:"rows" toml:"rows"`
		ViewerQueue    *int    `yaml:"viewer_queue" toml:"viewer_queue"`
	} `yaml:"terminal" toml:"terminal"`

	Security *struct {
		BlockedCommands  []string `yaml:"blocked_commands" toml:"blocked_commands"`
		AllowedCommands  []string `yaml:"allowed_commands" toml:"allowed_commands"`
		MaxCommandLength *int     `yaml:"max_command_length" toml:"max_command_length"`
	} `yaml:"security" toml:"security"`

	Executor *struct {
		Timeout        *string `yaml:"timeout" toml:"timeout"`
		MaxOutputBytes *int    `yaml:"max_output_bytes" toml:"max_output_bytes"`
	} `yaml:"executor" toml:"executor"`
}

// ApplyFile overlays the YAML or TOML file at path onto cfg. The format is
// chosen by extension.
func ApplyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}

	return fc.apply(cfg)
}

func (fc *fileConfig) apply(cfg *Config) error {
	if s := fc.Server; s != nil {
		setString(&cfg.Server.Port, s.Port)
		setString(&cfg.Server.Host, s.Host)
		if s.AllowedOrigins != nil {
			cfg.Server.AllowedOrigins = s.AllowedOrigins
		}
	}

	if l := fc.Logging; l != nil {
		setString(&cfg.Logging.Level, l.Level)
		setBool(&cfg.Logging.Development, l.Development)
		setString(&cfg.Logging.AuditPath, l.AuditPath)
	}

	if r := fc.RateLimit; r != nil {
		setInt(&cfg.RateLimit.RequestsPerSecond, r.RequestsPerSecond)
		setInt(&cfg.RateLimit.Burst, r.Burst)
		setBool(&cfg.RateLimit.Enabled, r.Enabled)
	}

	if t := fc.Terminal; t != nil {
		setInt(&cfg.Terminal.MaxSessions, t.MaxSessions)
		setInt(&cfg.Terminal.MaxLines, t.MaxLines)
		setString(&cfg.Terminal.Shell, t.Shell)
		setInt(&cfg.Terminal.Cols, t.Cols)
		setInt(&cfg.Terminal.Rows, t.Rows)
		setInt(&cfg.Terminal.ViewerQueue, t.ViewerQueue)
		if err := setDuration(&cfg.Terminal.SessionTimeout, t.SessionTimeout, "terminal.session_timeout"); err != nil {
			return err
		}
		if err := setDuration(&cfg.Terminal.ReaperInterval, t.ReaperInterval, "terminal.reaper_interval"); err != nil {
			return err
		}
		if err := setDuration(&cfg.Terminal.KillGrace, t.KillGrace, "terminal.kill_grace"); err != nil {
			return err
		}
	}

	if s := fc.Security; s != nil {
		if s.BlockedCommands != nil {
			cfg.Security.BlockedCommands = s.BlockedCommands
		}
		if s.AllowedCommands != nil {
			cfg.Security.AllowedCommands = s.AllowedCommands
		}
		setInt(&cfg.Security.MaxCommandLength, s.MaxCommandLength)
	}

	if e := fc.Executor; e != nil {
		setInt(&cfg.Executor.MaxOutputBytes, e.MaxOutputBytes)
		if err := setDuration(&cfg.Executor.Timeout, e.Timeout, "executor.timeout"); err != nil {
			return err
		}
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}
