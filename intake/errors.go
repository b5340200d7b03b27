// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package intake

import "fmt"

// ValidationError reports an answer that failed its field's rule. The
// conversation stays on the same step; the caller relays the reason as
// a re-prompt.
type ValidationError struct {
	// Field is the name of the offending field.
	Field string

	// Reason is the user-facing explanation.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("intake: field %s: %s", e.Field, e.Reason)
}

// IncompleteSessionError reports Finalize being called before every
// field was collected. This is a programming invariant violation, not
// a user-facing path: callers must check IsComplete first.
type IncompleteSessionError struct {
	// Step is the session's current step.
	Step int

	// Required is the schema's field count.
	Required int
}

func (e *IncompleteSessionError) Error() string {
	return fmt.Sprintf("intake: finalize of incomplete session (step %d of %d)", e.Step, e.Required)
}
