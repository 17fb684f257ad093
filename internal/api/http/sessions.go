package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
	"github.com/GriffinCanCode/shellbridge/internal/shared/utils"
	"github.com/GriffinCanCode/shellbridge/internal/terminal"
)

// sessionID reads and validates the :id path parameter.
func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := utils.ValidateID(id, "session_id", true); err != nil {
		badRequest(c, err)
		return "", false
	}
	return id, true
}

// ListSessions lists all sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	list := h.sessions.ListSessions()
	if list == nil {
		list = []terminal.Info{}
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": list,
		"count":    len(list),
	})
}

// CreateSession starts a session through terminal.start_session so the
// command passes the same validation and audit as tool callers.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req types.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	params := map[string]interface{}{
		"command": req.Command,
		"cwd":     req.Cwd,
		"shell":   req.Shell,
		"cols":    req.Cols,
		"rows":    req.Rows,
	}
	if len(req.Args) > 0 {
		params["args"] = req.Args
	}
	if len(req.Env) > 0 {
		params["env"] = req.Env
	}
	if req.PTY != nil {
		params["pty"] = *req.PTY
	}

	result, err := h.execute(c, "terminal.start_session", params, req.AIContext)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": result.Data["session"],
	})
}

// GetSession describes one session
func (h *Handlers) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	info, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": info})
}

// GetBuffer returns the scrollback without consuming it. ?lines=N keeps
// only the last N lines.
func (h *Handlers) GetBuffer(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	last := 0
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, fmt.Errorf("%w: lines must be a non-negative integer", utils.ErrInvalid))
			return
		}
		last = n
	}

	snap, status, err := h.sessions.GetBuffer(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if last > 0 && last < len(snap.Lines) {
		snap.Lines = snap.Lines[len(snap.Lines)-last:]
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"status":     status,
		"buffer":     snap,
	})
}

// ReadOutput returns output produced since the previous read
func (h *Handlers) ReadOutput(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	out, err := h.sessions.ReadOutput(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SendInput types into a session. Newline defaults to true.
func (h *Handlers) SendInput(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req types.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateInput(req.Input); err != nil {
		badRequest(c, err)
		return
	}

	newline := true
	if req.Newline != nil {
		newline = *req.Newline
	}
	if err := h.sessions.SendInput(id, req.Input, newline); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": id})
}

// Resize changes a PTY session's size
func (h *Handlers) Resize(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req types.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.sessions.ResizeTerminal(id, req.Cols, req.Rows); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": id, "cols": req.Cols, "rows": req.Rows})
}

// KillSession terminates and forgets a session. Unknown IDs succeed.
func (h *Handlers) KillSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.KillSession(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": id})
}
