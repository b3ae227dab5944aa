package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wappgate/wappgate/internal/domain"
	"github.com/wappgate/wappgate/internal/provider"
	realtimeTypes "github.com/wappgate/wappgate/pkg/realtime"
)

// backlogSession scripts chats, per-chat backlogs and failures.
type backlogSession struct {
	mu           sync.Mutex
	chats        []provider.Chat
	chatsErr     error
	backlog      map[string][]provider.Message
	fetchErrs    map[string]error
	markSeenErrs map[string]error
	markSeen     []string
	fetchLimits  map[string]int
}

func (s *backlogSession) Initialize(ctx context.Context) error { return nil }
func (s *backlogSession) Events() <-chan domain.ProviderEvent  { return nil }
func (s *backlogSession) Chats(ctx context.Context) ([]provider.Chat, error) {
	if s.chatsErr != nil {
		return nil, s.chatsErr
	}
	return s.chats, nil
}
func (s *backlogSession) ChatByID(ctx context.Context, id string) (provider.Chat, error) {
	return provider.Chat{ID: id}, nil
}
func (s *backlogSession) UnreadMessages(ctx context.Context, chat provider.Chat, limit int) ([]provider.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchLimits == nil {
		s.fetchLimits = make(map[string]int)
	}
	s.fetchLimits[chat.ID] = limit
	if err := s.fetchErrs[chat.ID]; err != nil {
		return nil, err
	}
	msgs := s.backlog[chat.ID]
	if limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs, nil
}
func (s *backlogSession) MarkSeen(ctx context.Context, chat provider.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markSeenErrs[chat.ID]; err != nil {
		return err
	}
	s.markSeen = append(s.markSeen, chat.ID)
	return nil
}
func (s *backlogSession) SendMessage(ctx context.Context, chatID, body string, opts provider.SendOptions) error {
	return nil
}
func (s *backlogSession) Destroy() error { return nil }

// collectHandler records handled messages and can fail on chosen ids.
type collectHandler struct {
	mu      sync.Mutex
	handled []string
	failIDs map[string]bool
}

func (h *collectHandler) Handle(ctx context.Context, msg provider.Message, sess provider.Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failIDs[msg.ID] {
		return errors.New("handler rejected message")
	}
	h.handled = append(h.handled, msg.ID)
	return nil
}

func TestSyncAbortsSilentlyWhenChatsFail(t *testing.T) {
	handler := &collectHandler{}
	syncer := NewSyncer(handler, 0, zerolog.Nop())
	sess := &backlogSession{chatsErr: errors.New("enumeration failed")}

	syncer.Run(context.Background(), "acct-1", sess)

	if len(handler.handled) != 0 {
		t.Error("no messages should be handled when chat enumeration fails")
	}
}

func TestSyncIsolatesPerConversationFailure(t *testing.T) {
	handler := &collectHandler{}
	syncer := NewSyncer(handler, 0, zerolog.Nop())
	sess := &backlogSession{
		chats: []provider.Chat{
			{ID: "broken", UnreadCount: 2},
			{ID: "healthy", UnreadCount: 1},
		},
		backlog: map[string][]provider.Message{
			"healthy": {{ID: "m1", ChatID: "healthy"}},
		},
		fetchErrs: map[string]error{"broken": errors.New("fetch failed")},
	}

	syncer.Run(context.Background(), "acct-1", sess)

	if len(handler.handled) != 1 || handler.handled[0] != "m1" {
		t.Errorf("the healthy conversation should still be processed, handled = %v", handler.handled)
	}
	if len(sess.markSeen) != 1 || sess.markSeen[0] != "healthy" {
		t.Errorf("only the healthy conversation should be marked seen, got %v", sess.markSeen)
	}
}

func TestSyncIsolatesPerMessageFailure(t *testing.T) {
	handler := &collectHandler{failIDs: map[string]bool{"m1": true}}
	syncer := NewSyncer(handler, 0, zerolog.Nop())
	sess := &backlogSession{
		chats: []provider.Chat{{ID: "c1", UnreadCount: 3}},
		backlog: map[string][]provider.Message{
			"c1": {{ID: "m1", ChatID: "c1"}, {ID: "m2", ChatID: "c1"}, {ID: "m3", ChatID: "c1"}},
		},
	}

	syncer.Run(context.Background(), "acct-1", sess)

	if len(handler.handled) != 2 {
		t.Errorf("remaining messages should be handled after one failure, handled = %v", handler.handled)
	}
	if len(sess.markSeen) != 1 {
		t.Error("conversation should still be marked seen")
	}
}

func TestSyncToleratesMarkSeenDefect(t *testing.T) {
	handler := &collectHandler{}
	syncer := NewSyncer(handler, 0, zerolog.Nop())
	sess := &backlogSession{
		chats: []provider.Chat{
			{ID: "c1", UnreadCount: 1},
			{ID: "c2", UnreadCount: 1},
		},
		backlog: map[string][]provider.Message{
			"c1": {{ID: "m1", ChatID: "c1"}},
			"c2": {{ID: "m2", ChatID: "c2"}},
		},
		markSeenErrs: map[string]error{
			"c1": errors.New("Cannot read properties of undefined (reading 'markedUnread')"),
		},
	}

	syncer.Run(context.Background(), "acct-1", sess)

	if len(handler.handled) != 2 {
		t.Errorf("markSeen defect must not fail the pass, handled = %v", handler.handled)
	}
}

func TestSyncCapsFetchSize(t *testing.T) {
	handler := &collectHandler{}
	syncer := NewSyncer(handler, 50, zerolog.Nop())
	sess := &backlogSession{
		chats: []provider.Chat{
			{ID: "huge", UnreadCount: 400},
			{ID: "small", UnreadCount: 3},
			{ID: "read", UnreadCount: 0},
		},
		backlog: map[string][]provider.Message{},
	}

	syncer.Run(context.Background(), "acct-1", sess)

	if got := sess.fetchLimits["huge"]; got != 50 {
		t.Errorf("expected fetch capped at 50, got %d", got)
	}
	if got := sess.fetchLimits["small"]; got != 3 {
		t.Errorf("expected fetch limited to unread count, got %d", got)
	}
	if _, fetched := sess.fetchLimits["read"]; fetched {
		t.Error("conversations without unread messages should be skipped")
	}
}

type topicRecorder struct {
	mu     sync.Mutex
	topics []string
	msgs   []realtimeTypes.ServerEnvelope
}

func (r *topicRecorder) Publish(topic string, msg realtimeTypes.ServerEnvelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.msgs = append(r.msgs, msg)
}

func TestBroadcastHandlerPublishesToConversationTopic(t *testing.T) {
	rec := &topicRecorder{}
	handler := NewBroadcastHandler(rec, func(id string) string { return "conversation:" + id })

	msg := provider.Message{ID: "m1", ChatID: "5511999999999@c.us", From: "5511999999999@c.us", Body: "oi"}
	if err := handler.Handle(context.Background(), msg, nil); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(rec.topics) != 1 || rec.topics[0] != "conversation:5511999999999@c.us" {
		t.Errorf("unexpected topics %v", rec.topics)
	}
	payload, ok := rec.msgs[0].Payload.(realtimeTypes.AppMessagePayload)
	if !ok || payload.MessageID != "m1" || payload.Body != "oi" {
		t.Errorf("unexpected payload %+v", rec.msgs[0].Payload)
	}
}
