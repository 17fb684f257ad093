package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
	"github.com/GriffinCanCode/shellbridge/internal/terminal"
)

// Registry is the tool registry surface used by the handlers.
type Registry interface {
	List(category *types.Category) []types.Service
	Discover(intent string, limit int) []types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
	Stats() map[string]interface{}
}

// Sessions is the session manager surface used by the handlers.
// *terminal.Manager satisfies it.
type Sessions interface {
	SendInput(sessionID, input string, addNewline bool) error
	ReadOutput(sessionID string) (*terminal.Output, error)
	GetBuffer(sessionID string) (terminal.Snapshot, terminal.Status, error)
	Get(sessionID string) (*terminal.Info, error)
	ListSessions() []terminal.Info
	ResizeTerminal(sessionID string, cols, rows int) error
	KillSession(sessionID string) error
	Count() (total, running int)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	registry Registry
	sessions Sessions
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	version  string
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(registry Registry, sessions Sessions, metrics *monitoring.Metrics, logger *zap.Logger, version string) *Handlers {
	return &Handlers{
		registry: registry,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		version:  version,
	}
}

// Register mounts every API route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.POST("/discover", h.DiscoverServices)
		services.POST("/execute", h.ExecuteService)
	}

	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.KillSession)
		sessions.GET("/:id/buffer", h.GetBuffer)
		sessions.GET("/:id/output", h.ReadOutput)
		sessions.POST("/:id/input", h.SendInput)
		sessions.POST("/:id/resize", h.Resize)
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "shellbridge",
		"version": h.version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	total, running := h.sessions.Count()
	body := gin.H{
		"status":  "healthy",
		"version": h.version,
		"sessions": gin.H{
			"total":   total,
			"running": running,
		},
		"service_registry": h.registry.Stats(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Stats()
	}
	c.JSON(http.StatusOK, body)
}
