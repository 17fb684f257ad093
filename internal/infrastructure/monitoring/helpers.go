package monitoring

import "time"

// Stats is the JSON view served alongside the Prometheus endpoint.
type Stats struct {
	MetricsSnapshot
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Stats returns current values for the JSON API.
func (m *Metrics) Stats() Stats {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	var avg float64
	if snap.RequestCount > 0 {
		avg = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}
	return Stats{
		MetricsSnapshot: snap,
		AvgLatencyMS:    avg,
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
	}
}
