// Package audit defines the fire-and-forget audit collaborator used by the
// session layer and tool providers.
//
// Entries carry a level, a message and a context map. The zap-backed logger
// routes them through the application logger under the "audit" name and can
// tee them into a dedicated JSON file.
package audit
