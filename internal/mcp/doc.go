// Package mcp serves the tool registry over the Model Context Protocol.
//
// Every registry tool becomes an MCP tool of the same name, with an input
// schema derived from its parameters. A successful call returns one text
// block: the tool's markdown summary followed by its data as JSON. Failures
// are returned as error results rather than protocol errors, so the model
// sees the message.
package mcp
