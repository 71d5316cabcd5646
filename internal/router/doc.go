// Package router implements the Message Dispatcher component.
//
// The dispatcher:
//   - Decodes raw frames from the Connection Manager by their "type" field
//   - Consumes heartbeat replies (pong) internally, never publishing them
//   - Drops malformed frames with a diagnostic, without closing the connection
//   - Delivers typed events in arrival order to a single downstream consumer
package router
