// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON, development mode writes coloured console
// lines. Both write to stderr. The level is atomic, so a config reload can
// turn on debug logging without a restart.
//
// Example Usage:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Session started", zap.String("session_id", sid))
//	_ = logger.SetLevel("debug")
package logging
