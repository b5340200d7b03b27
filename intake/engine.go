// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/slotenwacht/slotenbot/report"
)

// RecordStore is the engine's view of the durable report store.
// Satisfied by *report.Store.
type RecordStore interface {
	Insert(ctx context.Context, authorID int64, values map[string]string) (report.Report, error)
	ListRecent(ctx context.Context, limit int) ([]report.Report, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

// Broadcaster announces a persisted report to the group. Satisfied by
// *notify.Notifier.
type Broadcaster interface {
	Broadcast(ctx context.Context, rep report.Report) error
}

// Inbound is one authorized message entering the engine. The transport
// and the authorization gate have already run; the engine only sees
// messages it must act on.
type Inbound struct {
	// UserID is the sender.
	UserID int64

	// ChatID is where the message arrived; replies go back there.
	ChatID int64

	// Text is the raw message text. Leading "/" marks a command;
	// anything else is the current step's answer.
	Text string
}

// Result is the engine's response to one inbound message: the text to
// send back to the originating chat. Empty means no reply.
type Result struct {
	Reply string
}

// recentLimit caps how many reports /recent shows.
const recentLimit = 5

// Engine drives the per-user conversation state machine. Each inbound
// message is a pure transition input: the engine never blocks waiting
// for the next message, so the whole flow is testable without a live
// transport.
//
// On completion the side effects are strictly ordered: the report is
// persisted first, then the session is finalized, then the group is
// notified. A lost notification is recoverable (resend by hand); a
// lost record is not.
type Engine struct {
	registry    *Registry
	store       RecordStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

// EngineConfig holds the parameters for creating an Engine.
type EngineConfig struct {
	// Registry owns the conversation sessions. Required.
	Registry *Registry

	// Store persists completed reports. Required.
	Store RecordStore

	// Broadcaster announces completed reports to the group. Required.
	Broadcaster Broadcaster

	// Logger receives storage and notification failures. If nil,
	// logging is discarded.
	Logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Registry == nil {
		return nil, fmt.Errorf("intake: engine Registry is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("intake: engine Store is required")
	}
	if config.Broadcaster == nil {
		return nil, fmt.Errorf("intake: engine Broadcaster is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	return &Engine{
		registry:    config.Registry,
		store:       config.Store,
		broadcaster: config.Broadcaster,
		logger:      logger,
	}, nil
}

// Handle processes one inbound message and returns the reply for the
// sender's chat.
func (e *Engine) Handle(ctx context.Context, msg Inbound) Result {
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		return e.handleCommand(ctx, msg.UserID, text)
	}
	return e.handleAnswer(ctx, msg.UserID, text)
}

// handleCommand dispatches a slash command. The command token may
// carry a "@botname" suffix in group chats.
func (e *Engine) handleCommand(ctx context.Context, userID int64, text string) Result {
	command, argument, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")
	argument = strings.TrimSpace(argument)

	switch command {
	case "/start":
		// A fresh start always resets: any half-finished submission
		// is discarded, matching the terminal-state rule that a new
		// trigger begins at step 0.
		e.registry.Cancel(userID)
		e.registry.GetOrCreate(userID)
		return Result{Reply: "🔧 Nieuwe afwerking gestart.\n\n" + e.registry.Prompt(userID)}

	case "/cancel":
		e.registry.Cancel(userID)
		return Result{Reply: "❌ Afwerking geannuleerd."}

	case "/recent":
		return e.handleRecent(ctx)

	case "/done":
		return e.handleDone(ctx, userID, argument)

	default:
		return Result{Reply: "Onbekend commando. Gebruik /start, /cancel, /recent of /done <nr>."}
	}
}

// handleAnswer treats free text as the current step's answer. A user
// without a session gets one created at step 0, so their first message
// is the first field's answer.
func (e *Engine) handleAnswer(ctx context.Context, userID int64, text string) Result {
	e.registry.GetOrCreate(userID)

	// A session left complete by an earlier storage failure retries
	// persistence on the next message instead of consuming the text
	// as an answer.
	if !e.registry.IsComplete(userID) {
		if err := e.registry.Advance(userID, text); err != nil {
			var validationErr *ValidationError
			if errors.As(err, &validationErr) {
				return Result{Reply: "⚠️ " + validationErr.Reason + "\n\n" + e.registry.Prompt(userID)}
			}
			e.logger.Error("advance failed", "user_id", userID, "error", err)
			return Result{Reply: "⚠️ Er ging iets mis. Probeer het opnieuw met /start."}
		}
	}

	if e.registry.IsComplete(userID) {
		return e.finalize(ctx, userID)
	}
	return Result{Reply: e.registry.Prompt(userID)}
}

// finalize persists a complete session, then removes it, then
// broadcasts. Storage failure leaves the session untouched so the
// user's next message retries; broadcast failure is logged and never
// surfaced, since the report is already safe.
func (e *Engine) finalize(ctx context.Context, userID int64) Result {
	values, ok := e.registry.Completed(userID)
	if !ok {
		// Unreachable: callers verify IsComplete.
		e.logger.Error("finalize without complete session", "user_id", userID)
		return Result{Reply: "⚠️ Er ging iets mis. Probeer het opnieuw met /start."}
	}

	rep, err := e.store.Insert(ctx, userID, values)
	if err != nil {
		e.logger.Error("storing report failed",
			"user_id", userID,
			"error", err,
		)
		return Result{Reply: "⚠️ Opslaan is tijdelijk mislukt. Stuur een bericht om het opnieuw te proberen."}
	}

	if _, err := e.registry.Finalize(userID); err != nil {
		// The session was complete moments ago; a failure here is a
		// programming fault. The report is already persisted, so
		// continue to the broadcast.
		e.logger.Error("finalize invariant violation", "user_id", userID, "error", err)
	}

	if err := e.broadcaster.Broadcast(ctx, rep); err != nil {
		e.logger.Warn("group notification failed, report is persisted",
			"report_id", rep.ID,
			"error", err,
		)
	}

	return Result{Reply: fmt.Sprintf("✅ Afwerking #%d opgeslagen.", rep.ID)}
}

// handleRecent lists the latest reports, newest first.
func (e *Engine) handleRecent(ctx context.Context) Result {
	reports, err := e.store.ListRecent(ctx, recentLimit)
	if err != nil {
		e.logger.Error("listing reports failed", "error", err)
		return Result{Reply: "⚠️ Kon de afwerkingen niet ophalen."}
	}
	if len(reports) == 0 {
		return Result{Reply: "Nog geen afwerkingen."}
	}

	var builder strings.Builder
	builder.WriteString("📋 Laatste afwerkingen:")
	schema := e.registry.Schema()
	for _, rep := range reports {
		marker := "⏳"
		if rep.Status == report.StatusDone {
			marker = "✅"
		}
		// The first schema field is the headline (client name in the
		// default schema).
		fmt.Fprintf(&builder, "\n%s #%d — %s (%s)",
			marker, rep.ID, rep.Values[schema.Field(0).Name], rep.CreatedAt.Format("02-01-2006"))
	}
	return Result{Reply: builder.String()}
}

// handleDone marks a report as handled.
func (e *Engine) handleDone(ctx context.Context, userID int64, argument string) Result {
	id, err := strconv.ParseInt(argument, 10, 64)
	if err != nil || id <= 0 {
		return Result{Reply: "Gebruik: /done <nr>"}
	}

	if err := e.store.SetStatus(ctx, id, report.StatusDone); err != nil {
		e.logger.Warn("setting report status failed",
			"report_id", id,
			"user_id", userID,
			"error", err,
		)
		return Result{Reply: fmt.Sprintf("⚠️ Afwerking #%d niet gevonden.", id)}
	}
	return Result{Reply: fmt.Sprintf("✅ Afwerking #%d afgewerkt.", id)}
}
