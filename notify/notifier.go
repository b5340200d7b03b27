// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/slotenwacht/slotenbot/intake"
	"github.com/slotenwacht/slotenbot/lib/clock"
	"github.com/slotenwacht/slotenbot/report"
	"github.com/slotenwacht/slotenbot/telegram"
)

// Sender is the one transport call the notifier needs. Satisfied by
// *telegram.Client.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (telegram.Message, error)
}

// Notifier broadcasts completed reports to the fixed group chat with
// bounded retry. Delivery is at-least-once: a retry after a send that
// actually reached Telegram produces a duplicate message, which is
// acceptable and not deduplicated.
type Notifier struct {
	sender      Sender
	schema      intake.Schema
	chatID      int64
	maxAttempts int
	baseDelay   time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

// Config holds the parameters for creating a Notifier.
type Config struct {
	// Sender performs the actual sends. Required.
	Sender Sender

	// Schema orders the fields in the formatted message. Required.
	Schema intake.Schema

	// ChatID is the destination group. Required (group IDs are
	// negative on Telegram).
	ChatID int64

	// MaxAttempts is the send attempt ceiling. Defaults to 3.
	MaxAttempts int

	// BaseDelay is the first retry delay; it doubles per attempt.
	// Defaults to one second. A 429 retry_after longer than the
	// computed backoff takes precedence.
	BaseDelay time.Duration

	// Clock paces the backoff. If nil, the real clock is used.
	Clock clock.Clock

	// Logger receives retry warnings. If nil, logging is discarded.
	Logger *slog.Logger
}

// New creates a Notifier.
func New(config Config) (*Notifier, error) {
	if config.Sender == nil {
		return nil, fmt.Errorf("notify: Sender is required")
	}
	if config.Schema.Len() == 0 {
		return nil, fmt.Errorf("notify: Schema is required")
	}
	if config.ChatID == 0 {
		return nil, fmt.Errorf("notify: ChatID is required")
	}

	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	baseDelay := config.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	return &Notifier{
		sender:      config.Sender,
		schema:      config.Schema,
		chatID:      config.ChatID,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		clock:       clk,
		logger:      logger,
	}, nil
}

// Broadcast formats the report and sends it to the group, retrying
// transient failures with exponential backoff up to the attempt
// ceiling. Permanent API errors (bad chat, bot removed) abort
// immediately. The returned error is informational: the report is
// already persisted, so callers log it and move on.
func (n *Notifier) Broadcast(ctx context.Context, rep report.Report) error {
	text := n.format(rep)

	var lastError error
	for attempt := 0; attempt < n.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := n.baseDelay << (attempt - 1)
			var apiErr *telegram.APIError
			if errors.As(lastError, &apiErr) && apiErr.RetryAfter > 0 {
				if serverWait := time.Duration(apiErr.RetryAfter) * time.Second; serverWait > backoff {
					backoff = serverWait
				}
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("notify: broadcast of report %d: %w", rep.ID, ctx.Err())
			case <-n.clock.After(backoff):
			}
		}

		_, err := n.sender.SendMessage(ctx, n.chatID, text)
		if err == nil {
			n.logger.Info("report broadcast to group",
				"report_id", rep.ID,
				"chat_id", n.chatID,
				"attempts", attempt+1,
			)
			return nil
		}
		lastError = err

		if !isTransient(err) {
			return fmt.Errorf("notify: broadcast of report %d: %w", rep.ID, err)
		}

		n.logger.Warn("transient broadcast failure, retrying",
			"report_id", rep.ID,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return fmt.Errorf("notify: broadcast of report %d after %d attempts: %w",
		rep.ID, n.maxAttempts, lastError)
}

// isTransient reports whether a send failure is worth retrying. API
// errors answer for themselves; everything else (connection refused,
// timeout, EOF) is assumed transient.
func isTransient(err error) bool {
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return true
}

// format renders a report as the group announcement: a numbered
// header, one line per schema field, and the author for follow-up
// questions.
func (n *Notifier) format(rep report.Report) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "🔐 Afwerking #%d — %s\n",
		rep.ID, rep.CreatedAt.Format("02-01-2006 15:04"))

	for _, field := range n.schema.Fields() {
		fmt.Fprintf(&builder, "\n%s: %s", field.Label, rep.Values[field.Name])
	}

	fmt.Fprintf(&builder, "\n\nGemeld door: %d", rep.AuthorID)
	return builder.String()
}
