// Package model defines shared data types for a live quiz session.
//
// Conventions:
//   - Time limits: integer seconds
//   - Timestamps: RFC 3339 strings as delivered by the server
//   - IDs: opaque strings assigned by the server
package model
