// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns exactly one logical WebSocket attempt at a time
//   - Sends an application-level heartbeat while the connection is open
//   - Reconnects on abnormal closure with capped exponential backoff,
//     up to a bounded attempt count
//   - Never reconnects after a graceful close
//   - Publishes raw frames and lifecycle notices to a single subscriber set
package connection
