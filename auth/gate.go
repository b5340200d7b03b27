// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package auth

// Gate checks incoming actors against the configured allow-list. It is
// a pure predicate: denial causes no state change anywhere, and there
// is nothing to retry — a denied message is simply rejected.
//
// The allow-list is fixed at construction. Runtime mutation is
// deliberately unsupported: authorization configuration is read once at
// process start.
type Gate struct {
	users   map[int64]bool
	groupID int64
}

// New creates a Gate permitting the given Telegram user IDs and the
// single designated group chat.
func New(userIDs []int64, groupID int64) *Gate {
	users := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	return &Gate{users: users, groupID: groupID}
}

// AllowedUser reports whether the user is on the allow-list. An empty
// allow-list denies everyone: the bot is invite-only by construction.
func (g *Gate) AllowedUser(userID int64) bool {
	return g.users[userID]
}

// AllowedChat reports whether the chat is the designated group or a
// private chat with an allowed user (private chat IDs equal the user
// ID on Telegram).
func (g *Gate) AllowedChat(chatID int64) bool {
	if chatID == g.groupID {
		return true
	}
	return g.users[chatID]
}

// GroupID returns the designated group chat ID.
func (g *Gate) GroupID() int64 {
	return g.groupID
}
