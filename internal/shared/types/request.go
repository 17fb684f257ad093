package types

// ExecuteRequest represents a service execution request
type ExecuteRequest struct {
	ToolID    string                 `json:"tool_id" binding:"required"`
	Params    map[string]interface{} `json:"params"`
	AIContext string                 `json:"ai_context,omitempty"`
}

// StartSessionRequest is the HTTP body for creating a session.
type StartSessionRequest struct {
	Command   string            `json:"command"`
	Args      []string          `json:"args"`
	Cwd       string            `json:"cwd"`
	Env       map[string]string `json:"env"`
	Shell     string            `json:"shell"`
	PTY       *bool             `json:"pty"`
	Cols      int               `json:"cols"`
	Rows      int               `json:"rows"`
	AIContext string            `json:"ai_context"`
}

// InputRequest is the HTTP body for sending input to a session.
type InputRequest struct {
	Input   string `json:"input"`
	Newline *bool  `json:"newline"`
}

// ResizeRequest is the HTTP body for resizing a session.
type ResizeRequest struct {
	Cols int `json:"cols" binding:"required"`
	Rows int `json:"rows" binding:"required"`
}

// DiscoverRequest is the HTTP body for service discovery.
type DiscoverRequest struct {
	Message string `json:"message" binding:"required"`
	Limit   int    `json:"limit"`
}
