// Package http implements the REST API: service listing, discovery and tool
// execution, plus session CRUD over the terminal manager.
//
// Session creation goes through the terminal.start_session tool so HTTP and
// MCP callers share command validation and auditing. Domain errors map to
// status codes: not found 404, not running 409, session limit 429, denied
// command 403, bad parameters 400, open spawn breaker 503.
package http
