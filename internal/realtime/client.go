package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// clientIDs hands out stable ids so broadcast order is deterministic.
var clientIDs atomic.Uint64

// Client sits between one websocket connection and the hub. Inbound frames
// are handed to the server's dispatcher; outbound frames come from the hub
// through the send buffer.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn

	// mu orders Send against close: the hub may drop the client while its
	// read loop is still producing pongs and error events.
	mu     sync.Mutex
	closed bool
	send   chan Message

	handle func(*Client, Message)
	log    *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, handle func(*Client, Message), log *zap.Logger) *Client {
	return &Client{
		id:     clientIDs.Add(1),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		handle: handle,
		log:    log,
	}
}

// Send queues a message for this client only. Used for error events and the
// connect-time catalog snapshot; dropped silently when the buffer is full or
// the client has already been disconnected.
func (c *Client) Send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// close shuts the send channel exactly once. Only the hub calls it; the
// mutex keeps it safe against a concurrent Send from the read loop.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// detach hands the client back to the hub, falling through when the hub has
// already stopped, then releases the connection.
func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer c.detach()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error("set read deadline failed", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected websocket close", zap.Uint64("client_id", c.id), zap.Error(err))
			}
			return
		}

		if msg.Type == EventPing {
			c.Send(Message{Type: EventPong})
			continue
		}
		c.handle(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Warn("websocket write failed", zap.Uint64("client_id", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
