// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// maxResponseBytes caps how much of an API response body is read.
// Bot API responses are small; anything larger indicates a misbehaving
// server or proxy.
const maxResponseBytes = 4 << 20

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// Token is the bot token from @BotFather. Required.
	Token string

	// BaseURL overrides the Bot API endpoint. If empty,
	// DefaultBaseURL is used. Tests point this at an httptest server.
	BaseURL string

	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used. Long-poll callers should supply a client whose Timeout
	// exceeds the poll timeout.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, logging is
	// discarded.
	Logger *slog.Logger

	// SendLimit caps outbound sendMessage calls per second. Telegram
	// enforces roughly 30 messages per second globally; if zero, a
	// limiter at 25/s is installed. Negative disables limiting.
	SendLimit float64
}

// Client is a Telegram Bot API client. It holds the token, endpoint,
// and HTTP transport. Client is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
}

// NewClient creates a Bot API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("telegram: Token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("telegram: invalid BaseURL %q: %w", baseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	var limiter *rate.Limiter
	switch {
	case config.SendLimit > 0:
		limiter = rate.NewLimiter(rate.Limit(config.SendLimit), 1)
	case config.SendLimit == 0:
		limiter = rate.NewLimiter(rate.Limit(25), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
		limiter:    limiter,
	}, nil
}

// SendMessage sends a plain-text message to a chat. Outbound sends are
// rate-limited client-side; the context bounds the wait.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (Message, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Message{}, fmt.Errorf("telegram: send rate limit wait: %w", err)
		}
	}

	body, err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return Message{}, err
	}

	var message Message
	if err := json.Unmarshal(body, &message); err != nil {
		return Message{}, fmt.Errorf("telegram: failed to parse sendMessage result: %w", err)
	}
	return message, nil
}

// GetUpdates long-polls for new updates. offset acknowledges all
// updates with IDs below it; timeout is the server-side hold in
// seconds (zero returns immediately). The HTTP client's timeout must
// exceed the poll timeout or long polls fail spuriously.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	body, err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        timeout,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(body, &updates); err != nil {
		return nil, fmt.Errorf("telegram: failed to parse getUpdates result: %w", err)
	}
	return updates, nil
}

// GetMe validates the token and returns the bot's own account. Useful
// as a startup probe: a bad token fails here instead of in the first
// poll.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	body, err := c.call(ctx, "getMe", nil)
	if err != nil {
		return User{}, err
	}

	var me User
	if err := json.Unmarshal(body, &me); err != nil {
		return User{}, fmt.Errorf("telegram: failed to parse getMe result: %w", err)
	}
	return me, nil
}

// CloseIdleConnections closes idle HTTP connections in the transport's
// pool. Call after a network disruption to force fresh TCP connections
// instead of reusing a poisoned pooled connection.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// call performs one Bot API method call and returns the result field.
// On ok:false, returns a *APIError carrying the code, description, and
// retry parameters.
func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	requestURL := c.baseURL + "/bot" + c.token + "/" + method

	var bodyReader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("telegram: failed to encode %s request: %w", method, err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to create %s request: %w", method, err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(responseBody, &envelope); err != nil {
		// Non-JSON body means a broken proxy or gateway in front of
		// the API. Fail loud with the status line.
		return nil, fmt.Errorf("telegram: unexpected %d response from %s: %s",
			response.StatusCode, method, strings.TrimSpace(string(responseBody)))
	}

	if !envelope.OK {
		apiErr := &APIError{
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = envelope.Parameters.RetryAfter
			apiErr.MigrateToChatID = envelope.Parameters.MigrateToChatID
		}
		return nil, apiErr
	}

	return envelope.Result, nil
}
