// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/slotenwacht/slotenbot/auth"
	"github.com/slotenwacht/slotenbot/intake"
	"github.com/slotenwacht/slotenbot/lib/clock"
	"github.com/slotenwacht/slotenbot/report"
	"github.com/slotenwacht/slotenbot/telegram"
)

type sentReply struct {
	chatID int64
	text   string
}

type fakeReplySender struct {
	replies []sentReply
	err     error
}

func (s *fakeReplySender) SendMessage(ctx context.Context, chatID int64, text string) (telegram.Message, error) {
	if s.err != nil {
		return telegram.Message{}, s.err
	}
	s.replies = append(s.replies, sentReply{chatID: chatID, text: text})
	return telegram.Message{MessageID: int64(len(s.replies))}, nil
}

type nullRecordStore struct{}

func (nullRecordStore) Insert(ctx context.Context, authorID int64, values map[string]string) (report.Report, error) {
	return report.Report{ID: 1, AuthorID: authorID, Status: report.StatusPending, Values: values}, nil
}

func (nullRecordStore) ListRecent(ctx context.Context, limit int) ([]report.Report, error) {
	return nil, nil
}

func (nullRecordStore) SetStatus(ctx context.Context, id int64, status string) error {
	return fmt.Errorf("no report with id %d", id)
}

type nullBroadcaster struct{}

func (nullBroadcaster) Broadcast(ctx context.Context, rep report.Report) error { return nil }

func newTestBot(t *testing.T, sender *fakeReplySender) *Bot {
	t.Helper()
	registry, err := intake.NewRegistry(intake.RegistryConfig{
		Schema: intake.DefaultSchema(),
		Clock:  clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	engine, err := intake.NewEngine(intake.EngineConfig{
		Registry:    registry,
		Store:       nullRecordStore{},
		Broadcaster: nullBroadcaster{},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return &Bot{
		gate:   auth.New([]int64{100}, -42),
		engine: engine,
		sender: sender,
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)})),
	}
}

func textUpdate(userID, chatID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 1,
			From:      &telegram.User{ID: userID},
			Chat:      telegram.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func TestHandleUpdateRoutesAuthorizedMessage(t *testing.T) {
	sender := &fakeReplySender{}
	bot := newTestBot(t, sender)

	bot.HandleUpdate(context.Background(), textUpdate(100, 100, "/start"))

	if len(sender.replies) != 1 {
		t.Fatalf("sent %d replies, want 1", len(sender.replies))
	}
	if sender.replies[0].chatID != 100 {
		t.Errorf("reply chat = %d, want 100", sender.replies[0].chatID)
	}
	if !strings.Contains(sender.replies[0].text, "Nieuwe afwerking gestart") {
		t.Errorf("reply = %q", sender.replies[0].text)
	}
}

func TestHandleUpdateRejectsUnknownUser(t *testing.T) {
	sender := &fakeReplySender{}
	bot := newTestBot(t, sender)

	bot.HandleUpdate(context.Background(), textUpdate(999, 999, "/start"))

	if len(sender.replies) != 1 {
		t.Fatalf("sent %d replies, want 1", len(sender.replies))
	}
	if sender.replies[0].text != rejectionReply {
		t.Errorf("reply = %q, want fixed rejection", sender.replies[0].text)
	}

	// A rejected message must not have created a session: an allowed
	// user in the same position still starts at the first field.
	bot.HandleUpdate(context.Background(), textUpdate(100, 100, "Dupont"))
	if got := sender.replies[1].text; !strings.Contains(got, "Adres") {
		t.Errorf("next reply = %q, want second prompt", got)
	}
}

func TestHandleUpdateRejectsForeignChat(t *testing.T) {
	sender := &fakeReplySender{}
	bot := newTestBot(t, sender)

	// Allowed user writing in a chat that is neither the group nor
	// their private chat.
	bot.HandleUpdate(context.Background(), textUpdate(100, -777, "/start"))

	if len(sender.replies) != 1 || sender.replies[0].text != rejectionReply {
		t.Fatalf("replies = %+v, want one rejection", sender.replies)
	}
}

func TestHandleUpdateAllowsGroupChat(t *testing.T) {
	sender := &fakeReplySender{}
	bot := newTestBot(t, sender)

	bot.HandleUpdate(context.Background(), textUpdate(100, -42, "/recent"))

	if len(sender.replies) != 1 {
		t.Fatalf("sent %d replies, want 1", len(sender.replies))
	}
	if sender.replies[0].chatID != -42 {
		t.Errorf("reply chat = %d, want the group", sender.replies[0].chatID)
	}
}

func TestHandleUpdateSkipsNonText(t *testing.T) {
	sender := &fakeReplySender{}
	bot := newTestBot(t, sender)
	ctx := context.Background()

	bot.HandleUpdate(ctx, telegram.Update{UpdateID: 1})
	bot.HandleUpdate(ctx, textUpdate(100, 100, ""))
	bot.HandleUpdate(ctx, telegram.Update{
		UpdateID: 2,
		Message:  &telegram.Message{MessageID: 2, Chat: telegram.Chat{ID: 100}, Text: "hi"},
	})

	botMessage := textUpdate(100, 100, "hi")
	botMessage.Message.From.IsBot = true
	bot.HandleUpdate(ctx, botMessage)

	if len(sender.replies) != 0 {
		t.Errorf("sent %d replies, want 0", len(sender.replies))
	}
}

func TestHandleUpdateToleratesSendFailure(t *testing.T) {
	sender := &fakeReplySender{err: fmt.Errorf("network down")}
	bot := newTestBot(t, sender)

	// Must not panic; the failure is logged only.
	bot.HandleUpdate(context.Background(), textUpdate(100, 100, "/start"))
}
