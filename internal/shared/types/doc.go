// Package types holds the data structures shared by the tool registry, the
// providers and the transports (HTTP and MCP).
//
// A Service groups Tools; each Tool is addressed as "<service>.<tool>" and
// returns a Result. Failed results carry an Error message and are returned
// together with the underlying error so transports can map it to a status.
package types
