// CLAUDE:SUMMARY Sentinel errors for the triage service: missing inbox context, invalid input, not found.
package triage

import "errors"

// ErrMissingInbox is returned when an operation that needs an inbox
// context is called without one, or with an id that resolves to nothing.
// Inbox-scoped state and feedback must never be attributed implicitly.
var ErrMissingInbox = errors.New("triage: inbox context required")

// ErrInvalidInput is returned when a request fails validation.
var ErrInvalidInput = errors.New("triage: invalid input")

// ErrNotFound is returned when a referenced item does not exist.
var ErrNotFound = errors.New("triage: not found")
