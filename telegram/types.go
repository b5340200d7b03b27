// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import "encoding/json"

// Update is one entry from the Bot API getUpdates stream. Only message
// updates are relevant to the bot; other update kinds (edits, channel
// posts, callbacks) arrive with Message nil and are skipped by callers.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound or outbound Telegram message. Only text
// messages carry intake content; media messages have empty Text.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat identifies a conversation: private, group, or supergroup.
// Group chat IDs are negative.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	ErrorCode   int                 `json:"error_code"`
	Description string              `json:"description"`
	Parameters  *responseParameters `json:"parameters"`
}

// responseParameters carries extra error context: retry_after on 429,
// migrate_to_chat_id when a group was upgraded to a supergroup.
type responseParameters struct {
	RetryAfter      int   `json:"retry_after"`
	MigrateToChatID int64 `json:"migrate_to_chat_id"`
}

// sendMessageRequest is the payload for the sendMessage method.
type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// getUpdatesRequest is the payload for the getUpdates method. Timeout
// is the long-poll duration in seconds; zero returns immediately.
type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}
