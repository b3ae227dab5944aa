// Package realtime defines the wire contract between the gateway and its
// websocket subscribers.
package realtime

// Client commands. joinConversation carries the conversation id,
// joinStatus carries the status filter, joinNotifications has no payload.
type ClientAction string

const (
	ActionJoinConversation  ClientAction = "joinConversation"
	ActionJoinNotifications ClientAction = "joinNotifications"
	ActionJoinStatus        ClientAction = "joinStatus"
)

type ClientEnvelope struct {
	Action ClientAction `json:"action"`
	ID     string       `json:"id,omitempty"`
	Status string       `json:"status,omitempty"`
}

// Server events.
const (
	EventSession    = "whatsappSession"
	EventAppMessage = "appMessage"
	EventError      = "error"
)

type ServerEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
}

// SessionUpdatePayload accompanies EventSession broadcasts.
type SessionUpdatePayload struct {
	Action  string `json:"action"`
	Session any    `json:"session"`
}

// AppMessagePayload accompanies EventAppMessage broadcasts to a
// conversation topic.
type AppMessagePayload struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	From           string `json:"from"`
	Body           string `json:"body"`
}
