// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/slotenwacht/slotenbot/lib/clock"
)

// UpdatePoller tracks a position in the getUpdates stream and delivers
// batches of new updates. The offset advances past every returned
// update, acknowledging it server-side — updates are delivered at most
// once per poller.
//
// UpdatePoller is not safe for concurrent use. The bot runs exactly
// one poller feeding a single processing loop, which is what gives the
// conversation engine its one-message-at-a-time execution model.
type UpdatePoller struct {
	client  *Client
	clock   clock.Clock
	logger  *slog.Logger
	offset  int64
	timeout int
}

// PollerConfig holds configuration for creating an UpdatePoller.
type PollerConfig struct {
	// Client performs the getUpdates calls. Required.
	Client *Client

	// Timeout is the server-side long-poll hold in seconds. If zero,
	// 30 is used.
	Timeout int

	// Clock paces error backoff between failed polls. If nil, the
	// real clock is used.
	Clock clock.Clock

	// Logger receives poll failures. If nil, logging is discarded.
	Logger *slog.Logger
}

// NewPoller creates an UpdatePoller starting after all currently
// pending updates have been delivered once.
func NewPoller(config PollerConfig) (*UpdatePoller, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("telegram: poller Client is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	return &UpdatePoller{
		client:  config.Client,
		clock:   clk,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Next blocks until at least one update arrives or ctx is cancelled.
// Poll failures are logged and retried with a short backoff rather
// than returned: transient API trouble must not kill the bot's only
// intake loop. The only error Next returns is ctx.Err().
func (p *UpdatePoller) Next(ctx context.Context) ([]Update, error) {
	for {
		updates, err := p.client.GetUpdates(ctx, p.offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			backoff := time.Second
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				backoff = time.Duration(apiErr.RetryAfter) * time.Second
			}

			p.logger.Warn("getUpdates failed, backing off",
				"offset", p.offset,
				"backoff", backoff,
				"error", err,
			)
			p.client.CloseIdleConnections()

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-p.clock.After(backoff):
			}
			continue
		}

		if len(updates) == 0 {
			continue
		}

		// Acknowledge everything in this batch: the next poll's
		// offset must be one past the highest update ID seen.
		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
		}

		return updates, nil
	}
}

// Offset returns the current acknowledge position. Exposed for tests.
func (p *UpdatePoller) Offset() int64 {
	return p.offset
}
