// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package telegram is a minimal Telegram Bot API client: JSON method
// calls over HTTP, long-poll update delivery, and typed API errors.
//
// The client covers exactly the surface the bot needs (sendMessage,
// getUpdates, getMe) rather than the full Bot API. All methods take a
// context and return wrapped errors; non-ok API responses become
// *APIError values that callers can inspect for retry decisions.
//
// Outbound sends are rate-limited client-side because Telegram
// enforces a global per-bot message rate and answers violations with
// 429 responses that would otherwise surface as notifier retries.
package telegram
