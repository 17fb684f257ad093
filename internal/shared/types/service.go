package types

// Category represents service categories
type Category string

const (
	CategoryTerminal Category = "terminal"
	CategoryShell    Category = "shell"
	CategorySystem   Category = "system"
)

// Service represents a service definition
type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
}

// Tool represents a service tool
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter represents a tool parameter. Type is a JSON schema type name
// ("string", "integer", "number", "boolean", "array", "object"); Items names
// the element type of arrays.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Items       string `json:"items,omitempty"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Context describes who is calling a tool.
type Context struct {
	// Client names the transport ("http", "mcp").
	Client    string `json:"client,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// AIContext is free-form caller context recorded on sessions it creates.
	AIContext string `json:"ai_context,omitempty"`
}

// Result represents a service execution result
type Result struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *string                `json:"error,omitempty"`
	// Summary is a human-readable rendering of Data for text-only clients.
	Summary string `json:"summary,omitempty"`
}

// NewSuccess builds a successful result.
func NewSuccess(data map[string]interface{}, summary string) (*Result, error) {
	return &Result{Success: true, Data: data, Summary: summary}, nil
}

// NewFailure builds a failed result and returns err alongside it so callers
// can classify the failure with errors.Is.
func NewFailure(err error) (*Result, error) {
	msg := err.Error()
	return &Result{Success: false, Error: &msg}, err
}
