/*
Package monitoring provides Prometheus metrics for the server.

# Overview

Metrics are registered on a per-instance registry and exposed through
Handler. The collector also implements the terminal session observer, so
session and viewer lifecycle events flow into gauges and counters without
the terminal package importing Prometheus.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	manager := terminal.NewManager(cfg, auditLog, terminal.WithObserver(metrics))

	timer := monitoring.NewTimer(metrics, "shell.execute")
	defer timer.Stop("success")
*/
package monitoring
