// Package session implements the Session State Reconciler.
//
// Reduce is a pure function folding one typed protocol event into the
// prior state. Both live push events and REST snapshots go through the
// same merge rules, so whichever resolves later still yields a consistent
// authoritative state.
package session
