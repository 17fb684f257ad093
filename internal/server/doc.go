// Package server assembles shellbridge from its configuration.
//
// New builds, in order:
//  1. the logger, metrics collector and tracer
//  2. the audit log (optionally teed to a file)
//  3. the command validator
//  4. the terminal session manager, guarded by a PTY spawn circuit breaker
//  5. the tool registry with the terminal, shell and system providers
//  6. the Gin router with recovery, tracing, metrics, CORS and rate limiting
//
// Run serves HTTP; MCP returns a Model Context Protocol server over the same
// registry. Close shuts down the listener, kills every session and flushes
// the audit log.
//
// Example Usage:
//
//	cfg, err := config.Load()
//	srv, err := server.New(cfg, server.WithVersion(version))
//	go srv.Run()
//	defer srv.Close(context.Background())
package server
