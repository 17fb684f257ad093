package terminal

import "github.com/GriffinCanCode/shellbridge/internal/shared/types"

func sessionIDParam() types.Parameter {
	return types.Parameter{
		Name:        "session_id",
		Type:        "string",
		Description: "Session ID returned by terminal.start_session",
		Required:    true,
	}
}

func tools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.start_session",
			Name:        "Start Session",
			Description: "Start an interactive shell session. With pty (the default) the command is typed into a login shell and the session can be watched live; without pty the command runs directly with piped stdin/stdout/stderr",
			Parameters: []types.Parameter{
				{Name: "command", Type: "string", Description: "Command to run. Omit for a bare shell"},
				{Name: "args", Type: "array", Items: "string", Description: "Command arguments"},
				{Name: "cwd", Type: "string", Description: "Working directory. Defaults to the home directory, or the temp directory when there is none"},
				{Name: "env", Type: "object", Description: "Extra environment variables"},
				{Name: "shell", Type: "string", Description: "Shell for PTY sessions. Defaults to $SHELL"},
				{Name: "pty", Type: "boolean", Description: "Run under a pseudo-terminal. Defaults to true"},
				{Name: "cols", Type: "integer", Description: "Terminal width. Defaults to 80"},
				{Name: "rows", Type: "integer", Description: "Terminal height. Defaults to 24"},
				{Name: "ai_context", Type: "string", Description: "Why the session was started; shown to viewers"},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.send_input",
			Name:        "Send Input",
			Description: "Type input into a running session",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "input", Type: "string", Description: "Text to send. Control characters such as \\u0003 (Ctrl-C) are passed through", Required: true},
				{Name: "newline", Type: "boolean", Description: "Press Enter after the input. Defaults to true"},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.read_output",
			Name:        "Read Output",
			Description: "Read output produced since the previous read",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "output",
		},
		{
			ID:          "terminal.get_buffer",
			Name:        "Get Buffer",
			Description: "Return the session's scrollback buffer without consuming it",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "lines", Type: "integer", Description: "Return only the last N lines"},
			},
			Returns: "buffer",
		},
		{
			ID:          "terminal.get_session",
			Name:        "Get Session",
			Description: "Describe one session",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "session_info",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Sessions",
			Description: "List all sessions, oldest first",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize",
			Description: "Change the terminal size of a PTY session",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "cols", Type: "integer", Description: "Width in columns", Required: true},
				{Name: "rows", Type: "integer", Description: "Height in rows", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.kill_session",
			Name:        "Kill Session",
			Description: "Terminate a session and forget it. Killing an unknown session succeeds",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "success",
		},
	}
}
