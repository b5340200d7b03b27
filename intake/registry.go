// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package intake

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/slotenwacht/slotenbot/lib/clock"
)

// Registry owns the active conversation sessions: at most one per
// user. It applies the schema's validation on every answer and is the
// only component that creates, mutates, or destroys sessions.
//
// The mutex covers each operation whole, store access and session
// mutation included: the sweep ticker runs off the message-processing
// goroutine, and a sweep landing between a Get and a Put must not
// interleave with (or resurrect) a session mid-operation.
type Registry struct {
	mu     sync.Mutex
	schema Schema
	store  SessionStore
	clock  clock.Clock
	logger *slog.Logger
}

// RegistryConfig holds the parameters for creating a Registry.
type RegistryConfig struct {
	// Schema is the ordered field list. Required (zero schema is
	// rejected).
	Schema Schema

	// Store holds the sessions. If nil, a fresh MemoryStore is used.
	Store SessionStore

	// Clock stamps StartedAt on new sessions. If nil, the real clock
	// is used.
	Clock clock.Clock

	// Logger receives sweep and invariant-violation messages. If nil,
	// logging is discarded.
	Logger *slog.Logger
}

// NewRegistry creates a Registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.Schema.Len() == 0 {
		return nil, fmt.Errorf("intake: registry Schema is required")
	}

	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	return &Registry{
		schema: config.Schema,
		store:  store,
		clock:  clk,
		logger: logger,
	}, nil
}

// Schema returns the registry's field schema.
func (r *Registry) Schema() Schema { return r.schema }

// GetOrCreate returns the user's session, creating one at step 0 with
// nothing collected if none exists. Reports whether a new session was
// created. Creation is idempotent: an existing session is returned
// untouched. The session is owned by the registry; callers must not
// hold it across goroutines.
func (r *Registry) GetOrCreate(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.store.Get(userID); ok {
		return session, false
	}

	session := &Session{
		UserID:    userID,
		Collected: make(map[string]string, r.schema.Len()),
		StartedAt: r.clock.Now(),
	}
	r.store.Put(session)
	return session, true
}

// Advance validates the answer for the user's current step. On
// success the value is recorded and the step increments; on failure
// the session is left untouched and a *ValidationError names the
// offending field. Advance past the final step is an invariant
// violation; callers check IsComplete first.
func (r *Registry) Advance(userID int64, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.store.Get(userID)
	if !ok {
		return fmt.Errorf("intake: advance for user %d without a session", userID)
	}
	if session.Step >= r.schema.Len() {
		return fmt.Errorf("intake: advance past final step for user %d", userID)
	}

	value, err := r.schema.Validate(session.Step, answer)
	if err != nil {
		return err
	}

	session.Collected[r.schema.Field(session.Step).Name] = value
	session.Step++
	r.store.Put(session)
	return nil
}

// IsComplete reports whether every schema field has been answered.
// False when no session exists.
func (r *Registry) IsComplete(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.store.Get(userID)
	return ok && session.Step == r.schema.Len()
}

// Completed returns a copy of a complete session's collected values
// without removing the session. False when the session is absent or
// incomplete. The engine persists from this copy BEFORE calling
// Finalize, so a storage failure leaves the session intact for retry.
func (r *Registry) Completed(userID int64) (map[string]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.store.Get(userID)
	if !ok || session.Step != r.schema.Len() {
		return nil, false
	}

	values := make(map[string]string, len(session.Collected))
	for name, value := range session.Collected {
		values[name] = value
	}
	return values, true
}

// Finalize converts a complete session into its field mapping and
// removes the session. Fails with *IncompleteSessionError if called
// before completion — a programming fault, and the session is left
// untouched.
func (r *Registry) Finalize(userID int64) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.store.Get(userID)
	if !ok {
		return nil, &IncompleteSessionError{Step: 0, Required: r.schema.Len()}
	}
	if session.Step != r.schema.Len() {
		return nil, &IncompleteSessionError{Step: session.Step, Required: r.schema.Len()}
	}

	values := make(map[string]string, len(session.Collected))
	for name, value := range session.Collected {
		values[name] = value
	}
	r.store.Delete(userID)
	return values, nil
}

// Cancel removes the user's session unconditionally. Idempotent: a
// missing session is a no-op, not an error.
func (r *Registry) Cancel(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Delete(userID)
}

// Prompt returns the question for the user's current step, or the
// first step's question when no session exists.
func (r *Registry) Prompt(userID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	step := 0
	if session, ok := r.store.Get(userID); ok && session.Step < r.schema.Len() {
		step = session.Step
	}
	return r.schema.Field(step).Prompt
}

// Sweep removes every session idle longer than the threshold and
// returns how many were dropped. Called periodically from a ticker so
// abandoned conversations do not accumulate.
func (r *Registry) Sweep(now time.Time, idleThreshold time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, session := range r.store.All() {
		if now.Sub(session.StartedAt) > idleThreshold {
			r.store.Delete(session.UserID)
			removed++
			r.logger.Info("expired idle session",
				"user_id", session.UserID,
				"step", session.Step,
				"age", now.Sub(session.StartedAt),
			)
		}
	}
	return removed
}
