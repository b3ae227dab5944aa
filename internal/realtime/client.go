package realtime

import (
	"sync"

	"github.com/gorilla/websocket"

	realtimeTypes "github.com/wappgate/wappgate/pkg/realtime"
)

const outboundBufferSize = 64

// Client is one admitted websocket subscriber: the authenticated token
// subject, its outbound queue, and the topic set it has joined.
type Client struct {
	id      string
	subject string
	conn    *websocket.Conn

	mu     sync.RWMutex
	send   chan realtimeTypes.ServerEnvelope
	topics map[string]struct{}
	closed bool
}

func NewClient(id, subject string, conn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		subject: subject,
		conn:    conn,
		send:    make(chan realtimeTypes.ServerEnvelope, outboundBufferSize),
		topics:  make(map[string]struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Subject is the authenticated principal the client connected as.
func (c *Client) Subject() string {
	return c.subject
}

// Queue enqueues msg for delivery, returning false when the outbound
// buffer is full or the client is already closed. The closed check and
// the send happen under the read lock so a concurrent Close cannot close
// the channel mid-send.
func (c *Client) Queue(msg realtimeTypes.ServerEnvelope) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) WriteLoop() {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
	close(c.send)
}

func (c *Client) Subscribe(topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		c.topics[topic] = struct{}{}
	}
}

func (c *Client) Unsubscribe(topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.topics, topic)
	}
}

func (c *Client) IsSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}
