package provider

import (
	"context"

	"github.com/wappgate/wappgate/internal/domain"
)

// Chat is one conversation as reported by the provider.
type Chat struct {
	ID          string
	Name        string
	IsGroup     bool
	UnreadCount int
}

// Message is one inbound message fetched from a chat's backlog.
type Message struct {
	ID     string
	ChatID string
	From   string
	Body   string
	FromMe bool
}

// SendOptions carries per-send extras. A zero value is a plain send.
type SendOptions struct {
	QuotedMessageID string
}

// Session is one live connection to the external messaging network for a
// single account. Implementations own the underlying transport; callers
// interact only through this contract.
//
// Lifecycle:
//
//	Initialize starts the connection and is idempotent per process. All
//	lifecycle progress is reported on the Events channel: qr, then
//	authenticated and ready on success, or authFailure / disconnected.
//	Events for one session are delivered serially; the channel is closed
//	when the session is destroyed.
//
// Every network operation may fail transiently and must be treated as
// independently recoverable. MarkSeen in particular fails intermittently
// due to a provider-side defect (see IsMarkedUnreadDefect); its failure
// never indicates a broken connection.
type Session interface {
	Initialize(ctx context.Context) error
	Events() <-chan domain.ProviderEvent

	SendMessage(ctx context.Context, chatID, body string, opts SendOptions) error
	Chats(ctx context.Context) ([]Chat, error)
	ChatByID(ctx context.Context, chatID string) (Chat, error)
	UnreadMessages(ctx context.Context, chat Chat, limit int) ([]Message, error)
	MarkSeen(ctx context.Context, chat Chat) error

	// Destroy releases the underlying connection. Idempotent.
	Destroy() error
}

// Factory creates a provider session for the given account. The stored
// credential blob, when present, lets the session skip the pairing scan.
type Factory func(accountID string, credentials []byte) (Session, error)
