package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wappgate/wappgate/internal/provider"
	realtimeTypes "github.com/wappgate/wappgate/pkg/realtime"
)

const DefaultBacklogCap = 50

// MessageHandler ingests one backlog message. Handlers may fail per
// message; the sync pass carries on regardless.
type MessageHandler interface {
	Handle(ctx context.Context, msg provider.Message, sess provider.Session) error
}

// Syncer reconciles the unread backlog once a session becomes ready. The
// whole pass is best-effort: every failure is logged and contained at the
// smallest possible scope, and nothing is ever surfaced upward.
type Syncer struct {
	handler MessageHandler
	cap     int
	log     zerolog.Logger
}

func NewSyncer(handler MessageHandler, backlogCap int, log zerolog.Logger) *Syncer {
	if backlogCap <= 0 {
		backlogCap = DefaultBacklogCap
	}
	return &Syncer{
		handler: handler,
		cap:     backlogCap,
		log:     log.With().Str("component", "backlog-sync").Logger(),
	}
}

func (s *Syncer) Run(ctx context.Context, accountID string, sess provider.Session) {
	log := s.log.With().Str("account", accountID).Logger()

	chats, err := sess.Chats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not fetch chats to sync unread messages")
		return
	}

	for _, chat := range chats {
		if chat.UnreadCount <= 0 {
			continue
		}

		limit := chat.UnreadCount
		if limit > s.cap {
			limit = s.cap
		}

		msgs, err := sess.UnreadMessages(ctx, chat, limit)
		if err != nil {
			log.Warn().Err(err).Str("chat", chat.ID).Msg("could not fetch unread messages for chat")
			continue
		}

		for _, msg := range msgs {
			if s.handler == nil {
				continue
			}
			if err := s.handler.Handle(ctx, msg, sess); err != nil {
				log.Warn().Err(err).Str("chat", chat.ID).Str("message", msg.ID).Msg("error handling unread message (ignored)")
			}
		}

		// The provider's markSeen breaks intermittently when its web
		// client loses the markedUnread field; a failure here never
		// fails the chat or the pass.
		if err := sess.MarkSeen(ctx, chat); err != nil {
			log.Warn().Err(err).Str("chat", chat.ID).Bool("known_defect", provider.IsMarkedUnreadDefect(err)).Msg("could not mark chat as seen")
		}
	}
}

// Publisher is the topic-scoped slice of the realtime gateway.
type Publisher interface {
	Publish(topic string, msg realtimeTypes.ServerEnvelope)
}

// BroadcastHandler is the default ingestion collaborator: it forwards each
// backlog message to the message's conversation topic.
type BroadcastHandler struct {
	hub Publisher

	conversationTopic func(id string) string
}

func NewBroadcastHandler(hub Publisher, conversationTopic func(id string) string) *BroadcastHandler {
	return &BroadcastHandler{hub: hub, conversationTopic: conversationTopic}
}

func (h *BroadcastHandler) Handle(ctx context.Context, msg provider.Message, sess provider.Session) error {
	h.hub.Publish(h.conversationTopic(msg.ChatID), realtimeTypes.ServerEnvelope{
		Event: realtimeTypes.EventAppMessage,
		Payload: realtimeTypes.AppMessagePayload{
			Action:         "create",
			ConversationID: msg.ChatID,
			MessageID:      msg.ID,
			From:           msg.From,
			Body:           msg.Body,
		},
	})
	return nil
}
