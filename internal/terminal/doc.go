// Package terminal implements interactive terminal sessions.
//
// A Manager owns every session in a single store keyed by session id. PTY
// sessions run the default shell under a pseudo-terminal; a requested command
// is typed into that shell as its first line. Sessions started without a PTY
// are handed to the FallbackManager, which runs the command directly with
// piped stdio.
//
// Each session keeps a bounded RingBuffer of output lines and is driven by
// one goroutine consuming its process events:
//
//	running ──exit 0 or SIGHUP/SIGINT/SIGTERM──▶ finished
//	running ──any other exit──────────────────▶ error
//
// Terminal states absorb. On exit a marker line such as
// "[Process exited with code 0]" is appended to the buffer.
//
// Viewers attach with Manager.Attach and receive a replay of the buffer
// followed by live output, taken atomically. A viewer that falls behind its
// queue is disconnected.
//
// Sessions idle for longer than Config.SessionTimeout are killed by the
// reaper through the same path as KillSession, which is idempotent.
package terminal
