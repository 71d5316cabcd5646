// Package api provides the request/response collaborator for the quiz
// service: session snapshot retrieval, answer submission, and starting a
// session.
//
// These are fire-and-forget wrappers with no protocol logic of their own.
// Failures surface as *APIError and are never retried here; callers may
// retry individual operations manually.
package api
