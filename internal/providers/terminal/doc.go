// Package terminal exposes the session manager as terminal.* tools.
//
// Tools:
//
//	terminal.start_session   start a PTY (default) or piped session
//	terminal.send_input      type into a session
//	terminal.read_output     read output since the previous read
//	terminal.get_buffer      scrollback snapshot, non-consuming
//	terminal.get_session     describe one session
//	terminal.list_sessions   all sessions, oldest first
//	terminal.resize          change PTY size
//	terminal.kill_session    terminate and forget a session
//
// start_session runs the command through the security validator first; a
// denied command is audited and never reaches a shell. Input sent to an
// existing session is not validated.
package terminal
