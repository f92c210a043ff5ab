package chat

import (
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client is one live websocket session. A user may hold several at
// once, each maintained separately.
type Client struct {
	ConnID string          // unique within this gateway
	UserID string          // fixed after the handshake is verified
	WS     *websocket.Conn
	Send   chan []byte // outbound queue, drained by a single writer goroutine

	// closed flips exactly once, inside the room index lock, so a late
	// Join can never race past disconnect cleanup.
	closed atomic.Bool
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

func (c *Client) Closed() bool { return c.closed.Load() }

// Enqueue offers a payload to the client's send queue without
// blocking. It reports false when the client is gone or cannot keep
// up; the caller decides whether that costs the client its connection.
func (c *Client) Enqueue(payload []byte) (ok bool) {
	if c.closed.Load() {
		return false
	}
	// The queue may be closed between the flag check and the send.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}
