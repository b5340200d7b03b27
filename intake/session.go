// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package intake

import "time"

// Session is one user's in-progress report submission. Step indexes
// the schema's ordered field list: a session at step n is waiting for
// the answer to field n, and is complete when Step equals the field
// count.
type Session struct {
	// UserID owns the session — the unique key in the SessionStore.
	UserID int64

	// Step is the 0-based index of the field currently being asked.
	Step int

	// Collected maps field name to validated answer for every step
	// already answered.
	Collected map[string]string

	// StartedAt drives idle expiry in Registry.Sweep.
	StartedAt time.Time
}

// SessionStore holds the in-flight sessions, keyed by user ID. The
// registry's state is injected through this interface so tests and
// future persistent backends can swap the implementation; there are no
// package-level session globals.
//
// The Registry serializes every call under its own mutex, so
// implementations need no locking of their own.
type SessionStore interface {
	// Get returns the session for the user, or false.
	Get(userID int64) (*Session, bool)

	// Put stores or replaces the user's session.
	Put(session *Session)

	// Delete removes the user's session. No-op if absent.
	Delete(userID int64)

	// All returns a snapshot of every stored session.
	All() []*Session
}
