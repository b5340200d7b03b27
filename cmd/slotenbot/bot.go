// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"

	"github.com/slotenwacht/slotenbot/auth"
	"github.com/slotenwacht/slotenbot/intake"
	"github.com/slotenwacht/slotenbot/telegram"
)

// rejectionReply is the fixed response for actors not on the
// allow-list. Denial is final for that message: nothing is created,
// advanced, or read on their behalf.
const rejectionReply = "⛔️ Je hebt geen toegang tot deze bot."

// replySender is the one transport call the bot router needs.
// Satisfied by *telegram.Client.
type replySender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (telegram.Message, error)
}

// Bot routes inbound updates: authorization first, then the
// conversation engine, then the reply back to the originating chat.
// All updates flow through HandleUpdate on a single goroutine — the
// engine relies on one-message-at-a-time execution.
type Bot struct {
	gate   *auth.Gate
	engine *intake.Engine
	sender replySender
	logger *slog.Logger
}

// HandleUpdate processes one update from the poller. Non-message
// updates, messages without text, and messages from other bots are
// skipped silently.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	message := update.Message
	if message == nil || message.From == nil || message.Text == "" {
		return
	}
	if message.From.IsBot {
		return
	}

	userID := message.From.ID
	chatID := message.Chat.ID

	if !b.gate.AllowedUser(userID) || !b.gate.AllowedChat(chatID) {
		b.logger.Info("rejected unauthorized message",
			"user_id", userID,
			"chat_id", chatID,
		)
		b.reply(ctx, chatID, rejectionReply)
		return
	}

	result := b.engine.Handle(ctx, intake.Inbound{
		UserID: userID,
		ChatID: chatID,
		Text:   message.Text,
	})
	if result.Reply != "" {
		b.reply(ctx, chatID, result.Reply)
	}
}

// reply sends a message back to a chat. Send failures are logged, not
// propagated: a lost prompt is recovered by the user's next message.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.sender.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("reply failed", "chat_id", chatID, "error", err)
	}
}
