// Package service provides the tool registry shared by the HTTP and MCP
// transports.
//
// Providers register a Service definition listing their Tools. Tools are
// addressed as "<service>.<tool>"; the registry resolves the prefix to a
// provider and rejects ids that no provider declares.
//
//	registry := service.NewRegistry()
//	registry.Register(terminalProvider)
//	result, err := registry.Execute(ctx, "terminal.send_input", params, appCtx)
//
// Discover ranks services for a free-text intent by keyword, capability,
// tool name and category matches.
package service
