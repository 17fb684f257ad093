// Command shellbridge serves PTY terminal sessions and shell tools to AI
// agents over HTTP, WebSocket and the Model Context Protocol.
//
// Usage:
//
//	# HTTP API, WebSocket viewers and /metrics
//	shellbridge serve --port 8000
//
//	# MCP over stdio, for agent hosts that launch tools as subprocesses
//	shellbridge mcp
//
//	# MCP over stdio with the HTTP API alongside it
//	shellbridge mcp --http
//
// Configuration comes from defaults, the file named by SHELLBRIDGE_CONFIG,
// environment variables and finally flags.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown, killing every session
package main
