package realtime

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Event names on the push channel. Inbound events arrive from clients,
// outbound events are broadcast to every connected client. The error event is
// sent only to the client whose request failed.
const (
	EventNewProduct     = "newProduct"
	EventDeleteProduct  = "deleteProduct"
	EventProductAdded   = "productAdded"
	EventProductDeleted = "productDeleted"
	EventCatalog        = "catalog"
	EventError          = "error"
	EventPing           = "ping"
	EventPong           = "pong"
)

// Message is one push-channel frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub tracks connected clients and fans broadcast messages out to all of
// them. Delivery is fire-and-forget: a client whose send buffer is full is
// dropped, and nobody waits for acknowledgements.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log     *zap.Logger
	metrics *Metrics
}

func NewHub(log *zap.Logger, metrics *Metrics) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
		metrics:    metrics,
	}
}

// Run drives the hub until ctx is canceled, at which point every client is
// closed and ctx.Err() is returned. Lifecycle events take priority over
// broadcasts so the client set is settled before a message fans out.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Broadcast queues a message for delivery to every connected client. When the
// queue is full the message is dropped; the channel promises at-most-once
// delivery only.
func (h *Hub) Broadcast(eventType string, data any) {
	select {
	case h.broadcast <- Message{Type: eventType, Data: data}:
	default:
		h.log.Warn("broadcast queue full, dropping message", zap.String("type", eventType))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.Clients.Set(float64(n))
	}
	h.log.Info("realtime client connected", zap.Uint64("client_id", c.id), zap.Int("total_clients", n))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.Clients.Set(float64(n))
	}
	h.log.Info("realtime client disconnected", zap.Uint64("client_id", c.id), zap.Int("total_clients", n))
}

// fanOut delivers one message to every client in stable id order. Clients
// that cannot keep up are disconnected rather than block the hub.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var dropped []*Client
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			dropped = append(dropped, c)
		}
	}

	for _, c := range dropped {
		c.close()
		delete(h.clients, c)
		h.log.Warn("realtime client dropped, send buffer full", zap.Uint64("client_id", c.id))
	}

	if h.metrics != nil {
		h.metrics.Broadcasts.WithLabelValues(msg.Type).Inc()
		h.metrics.Clients.Set(float64(len(h.clients)))
	}
}

// shutdown closes every client and then signals done, so detaching read
// loops stop waiting on the unregister channel once the hub is gone.
func (h *Hub) shutdown() {
	h.mu.Lock()

	n := len(h.clients)
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}

	if h.metrics != nil {
		h.metrics.Clients.Set(0)
	}
	h.mu.Unlock()

	close(h.done)
	h.log.Info("realtime hub stopped", zap.Int("clients_closed", n))
}
