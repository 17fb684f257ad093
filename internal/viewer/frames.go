package viewer

import "github.com/GriffinCanCode/shellbridge/internal/terminal"

// Outbound frame types.
const (
	TypeReplay = "replay"
	TypeData   = "data"
	TypeExit   = "exit"
	TypeError  = "error"
	TypePong   = "pong"
)

// Inbound frame types.
const (
	TypeInput  = "input"
	TypeResize = "resize"
	TypePing   = "ping"
)

// ReplayFrame is the first frame on every connection: the buffered history
// at the moment of attach.
type ReplayFrame struct {
	Type       string          `json:"type"`
	SessionID  string          `json:"session_id"`
	Lines      []terminal.Line `json:"lines"`
	Scrollback int             `json:"scrollback"`
	MaxLines   int             `json:"max_lines"`
	Status     terminal.Status `json:"status"`
	Partial    string          `json:"partial,omitempty"`
	Cursor     terminal.Cursor `json:"cursor"`
}

// DataFrame carries one raw output chunk.
type DataFrame struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// ExitFrame reports process termination.
type ExitFrame struct {
	Type     string          `json:"type"`
	Status   terminal.Status `json:"status"`
	ExitCode int             `json:"exit_code"`
	Signal   string          `json:"signal,omitempty"`
}

// ErrorFrame reports a failed inbound request. The connection stays open.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type pongFrame struct {
	Type string `json:"type"`
}

// InboundFrame is any client → server frame.
//
// Input data is sent as typed, like keystrokes from a terminal emulator.
// Newline defaults to false here, unlike the tool and HTTP input paths;
// set it to have a line terminator appended.
type InboundFrame struct {
	Type    string `json:"type"`
	Data    string `json:"data,omitempty"`
	Newline bool   `json:"newline,omitempty"`
	Cols    int    `json:"cols,omitempty"`
	Rows    int    `json:"rows,omitempty"`
}

func replayFrame(sub *terminal.Subscription) ReplayFrame {
	lines := sub.Replay.Lines
	if lines == nil {
		lines = []terminal.Line{}
	}
	return ReplayFrame{
		Type:       TypeReplay,
		SessionID:  sub.SessionID,
		Lines:      lines,
		Scrollback: sub.Replay.Scrollback,
		MaxLines:   sub.Replay.MaxLines,
		Status:     sub.Status,
		Partial:    sub.Replay.Partial,
		Cursor:     sub.Replay.Cursor,
	}
}

func exitFrame(status terminal.Status, es *terminal.ExitStatus) ExitFrame {
	f := ExitFrame{Type: TypeExit, Status: status}
	if es != nil {
		f.ExitCode = es.Code
		f.Signal = es.Signal
	}
	return f
}
