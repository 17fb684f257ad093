// Package utils validates request fields at the HTTP boundary: IDs, tool
// IDs, category filters, discovery intents, session input and tool
// parameters. Every failure wraps ErrInvalid.
package utils
