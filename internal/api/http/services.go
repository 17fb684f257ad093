package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shellbridge/internal/service"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
	"github.com/GriffinCanCode/shellbridge/internal/shared/utils"
)

const defaultDiscoverLimit = 5

// ListServices lists all available services
func (h *Handlers) ListServices(c *gin.Context) {
	categoryStr := c.Query("category")
	if err := utils.ValidateCategory(categoryStr, false); err != nil {
		badRequest(c, err)
		return
	}

	var category *types.Category
	if categoryStr != "" {
		cat := types.Category(categoryStr)
		category = &cat
	}

	services := h.registry.List(category)
	if services == nil {
		services = []types.Service{}
	}
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"stats":    h.registry.Stats(),
	})
}

// DiscoverServices discovers relevant services for a request
func (h *Handlers) DiscoverServices(c *gin.Context) {
	var req types.DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateMessage(req.Message); err != nil {
		badRequest(c, err)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultDiscoverLimit
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    req.Message,
		"services": h.registry.Discover(req.Message, limit),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateToolID(req.ToolID, "tool_id", true); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateParams(req.Params); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.execute(c, req.ToolID, req.Params, req.AIContext)
	if err != nil {
		if result == nil {
			respondError(c, err)
			return
		}
		c.JSON(statusFor(err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// execute runs a tool on behalf of an HTTP client, recording metrics.
func (h *Handlers) execute(c *gin.Context, toolID string, params map[string]interface{}, aiContext string) (*types.Result, error) {
	start := time.Now()
	ctx := c.Request.Context()
	appCtx := &types.Context{
		Client:    "http",
		RequestID: string(tracing.TraceIDFrom(ctx)),
		AIContext: aiContext,
	}
	result, err := h.registry.Execute(ctx, toolID, params, appCtx)

	status, label := "success", toolID
	if err != nil {
		status = "error"
		h.logger.Debug("tool call failed", zap.String("tool", toolID), zap.Error(err))
	}
	if errors.Is(err, service.ErrUnknownTool) || errors.Is(err, service.ErrInvalidToolID) {
		// Caller-supplied IDs must not become label values.
		label = "unknown"
	}
	if h.metrics != nil {
		h.metrics.RecordToolCall(label, status, time.Since(start))
	}
	return result, err
}
