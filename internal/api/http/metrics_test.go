package http

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/monitoring"
)

func testToolCalls(m *monitoring.Metrics, tool, status string) float64 {
	return testutil.ToFloat64(m.ToolCalls.WithLabelValues(tool, status))
}
