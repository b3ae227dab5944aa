// Package echo implements an in-process loopback provider session. It
// authenticates immediately (or via a scripted failure), records every
// outbound send, and serves a scripted unread backlog, which makes it
// usable both as a development stand-in for the real network and as the
// session double in tests.
package echo

import (
	"context"
	"fmt"
	"sync"

	"github.com/wappgate/wappgate/internal/domain"
	"github.com/wappgate/wappgate/internal/provider"
)

const eventBufferSize = 16

type SentMessage struct {
	ChatID string
	Body   string
	Opts   provider.SendOptions
}

// Session is a loopback provider.Session. The zero value is not usable;
// construct with New.
type Session struct {
	accountID string

	mu        sync.Mutex
	events    chan domain.ProviderEvent
	sent      []SentMessage
	chats     []provider.Chat
	backlog   map[string][]provider.Message
	destroyed bool

	// FailAuth makes Initialize emit qr then authFailure instead of the
	// success sequence.
	FailAuth bool
	// SkipScan makes Initialize go straight to authenticated/ready, as a
	// session restored from stored credentials would.
	SkipScan bool
	// Challenge is the pairing challenge emitted with the qr event.
	Challenge string
}

func New(accountID string) *Session {
	return &Session{
		accountID: accountID,
		events:    make(chan domain.ProviderEvent, eventBufferSize),
		backlog:   make(map[string][]provider.Message),
		Challenge: "echo-challenge",
	}
}

// Factory returns a provider.Factory producing echo sessions. Stored
// credentials skip the pairing scan, mirroring the real provider.
func Factory() provider.Factory {
	return func(accountID string, credentials []byte) (provider.Session, error) {
		s := New(accountID)
		s.SkipScan = len(credentials) > 0
		return s, nil
	}
}

func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("echo session %s destroyed", s.accountID)
	}

	if s.FailAuth {
		s.events <- domain.NewQREvent(s.Challenge)
		s.events <- domain.NewAuthFailureEvent("scripted auth failure")
		return nil
	}
	if !s.SkipScan {
		s.events <- domain.NewQREvent(s.Challenge)
	}
	s.events <- domain.NewAuthenticatedEvent()
	s.events <- domain.NewReadyEvent()
	return nil
}

func (s *Session) Events() <-chan domain.ProviderEvent {
	return s.events
}

func (s *Session) SendMessage(ctx context.Context, chatID, body string, opts provider.SendOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("echo session %s destroyed", s.accountID)
	}
	s.sent = append(s.sent, SentMessage{ChatID: chatID, Body: body, Opts: opts})
	return nil
}

func (s *Session) Chats(ctx context.Context) ([]provider.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chats := make([]provider.Chat, len(s.chats))
	copy(chats, s.chats)
	return chats, nil
}

func (s *Session) ChatByID(ctx context.Context, chatID string) (provider.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if c.ID == chatID {
			return c, nil
		}
	}
	return provider.Chat{}, fmt.Errorf("chat %s not found", chatID)
}

func (s *Session) UnreadMessages(ctx context.Context, chat provider.Chat, limit int) ([]provider.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.backlog[chat.ID]
	if limit < len(msgs) {
		msgs = msgs[:limit]
	}
	out := make([]provider.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *Session) MarkSeen(ctx context.Context, chat provider.Chat) error {
	return nil
}

func (s *Session) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	close(s.events)
	return nil
}

// SeedBacklog registers a chat with pending messages for the next sync
// pass.
func (s *Session) SeedBacklog(chat provider.Chat, msgs []provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, chat)
	s.backlog[chat.ID] = msgs
}

// Sent returns a copy of every message delivered through SendMessage.
func (s *Session) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
