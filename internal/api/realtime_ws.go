package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wappgate/wappgate/internal/realtime"
	realtimeTypes "github.com/wappgate/wappgate/pkg/realtime"
)

var realtimeUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// realtimeWebSocket admits authenticated subscribers. The policy is
// strict: no token, no connection — there is no anonymous pre-login mode.
func (h *Handler) realtimeWebSocket(w http.ResponseWriter, r *http.Request) {
	subject, err := verifyToken(bearerFromRequest(r), h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token", "")
		return
	}

	conn, err := realtimeUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := realtime.NewClient(uuid.NewString(), subject, conn)
	h.hub.Register(client)
	defer h.hub.Unregister(client.ID())

	h.log.Info().Str("subject", client.Subject()).Str("client", client.ID()).Msg("realtime client connected")
	defer h.log.Info().Str("client", client.ID()).Msg("realtime client disconnected")

	go client.WriteLoop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg realtimeTypes.ClientEnvelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendRealtimeError(client, "invalid message")
			continue
		}

		switch msg.Action {
		case realtimeTypes.ActionJoinConversation:
			if msg.ID == "" {
				h.sendRealtimeError(client, "conversation id is required")
				continue
			}
			h.hub.Subscribe(client.ID(), []string{realtime.ConversationTopic(msg.ID)})
		case realtimeTypes.ActionJoinNotifications:
			h.hub.Subscribe(client.ID(), []string{realtime.TopicNotification})
		case realtimeTypes.ActionJoinStatus:
			if msg.Status == "" {
				h.sendRealtimeError(client, "status filter is required")
				continue
			}
			h.hub.Subscribe(client.ID(), []string{realtime.StatusTopic(msg.Status)})
		default:
			h.sendRealtimeError(client, "unsupported action")
		}
	}
}

func (h *Handler) sendRealtimeError(client *realtime.Client, message string) {
	if !client.Queue(realtimeTypes.ServerEnvelope{
		Event:   realtimeTypes.EventError,
		Message: message,
	}) {
		h.hub.Unregister(client.ID())
	}
}
