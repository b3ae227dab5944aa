package realtime

import (
	"sync"

	realtimeTypes "github.com/wappgate/wappgate/pkg/realtime"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID()] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if ok {
		delete(h.clients, clientID)
	}
	h.mu.Unlock()

	if ok {
		client.Close()
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()
	return clients
}

// Publish delivers msg to clients subscribed to topic. Clients whose
// outbound queue is full are dropped.
func (h *Hub) Publish(topic string, msg realtimeTypes.ServerEnvelope) {
	for _, client := range h.snapshot() {
		if !client.IsSubscribed(topic) {
			continue
		}
		if client.Queue(msg) {
			continue
		}
		h.Unregister(client.ID())
	}
}

// BroadcastAll delivers msg to every admitted client regardless of topic
// subscriptions. Session lifecycle updates use this path: state changes
// are relevant to every connected operator client.
func (h *Hub) BroadcastAll(msg realtimeTypes.ServerEnvelope) {
	for _, client := range h.snapshot() {
		if client.Queue(msg) {
			continue
		}
		h.Unregister(client.ID())
	}
}

func (h *Hub) Subscribe(clientID string, topics []string) bool {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	client.Subscribe(topics)
	return true
}

func (h *Hub) Unsubscribe(clientID string, topics []string) bool {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	client.Unsubscribe(topics)
	return true
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
