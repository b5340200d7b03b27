// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import "fmt"

// APIError is a non-ok response from the Bot API. All Bot API error
// responses share the same JSON shape: an error_code, a human-readable
// description, and optional parameters (retry_after on rate limits).
type APIError struct {
	// Code is the HTTP-style error code from the response body
	// (e.g., 400, 403, 429, 502).
	Code int

	// Description is the server's human-readable error text.
	Description string

	// RetryAfter is the server-requested wait in seconds before
	// retrying. Only set on 429 responses; zero otherwise.
	RetryAfter int

	// MigrateToChatID is set when the target group was upgraded to a
	// supergroup and messages must go to the new chat ID.
	MigrateToChatID int64
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram: API error %d: %s (retry after %ds)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram: API error %d: %s", e.Code, e.Description)
}

// Transient reports whether the error is worth retrying: rate limits
// (429) and server errors (5xx) are transient; other client errors
// (bad chat ID, bot kicked from group) are permanent.
func (e *APIError) Transient() bool {
	if e.Code == 429 {
		return true
	}
	return e.Code >= 500
}
