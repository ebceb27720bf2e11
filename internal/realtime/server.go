package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"LiveStore/internal/catalog"
)

// Server accepts websocket connections and applies inbound mutation events
// through the catalog Manager, broadcasting the resulting state change to
// every connected client. HTTP handlers and this channel share the same
// Manager, so both entry points serialize on the same backing file.
type Server struct {
	Hub     *Hub
	Catalog *catalog.Manager
	Log     *zap.Logger
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		// Same-origin policy is not enforced; the service has no
		// cross-origin surface beyond the catalog itself.
		CheckOrigin: func(*http.Request) bool { return true },
	}
}

// ServeWS upgrades the request and attaches the new client to the hub. The
// current catalog is pushed to the client before it can receive broadcasts,
// so a fresh connection always starts from a consistent snapshot.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log().Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(s.Hub, conn, s.dispatch, s.log())

	if products, err := s.Catalog.List(r.Context()); err != nil {
		s.log().Error("catalog snapshot failed", zap.Error(err))
		client.Send(Message{Type: EventError, Data: map[string]any{"message": "server error"}})
	} else {
		client.Send(Message{Type: EventCatalog, Data: products})
	}

	s.Hub.register <- client
	client.start()
}

// dispatch routes one inbound client event. Failures go back to the
// requesting client as an error event; successes broadcast to everyone,
// including the requester.
func (s *Server) dispatch(c *Client, msg Message) {
	ctx := context.Background()

	switch msg.Type {
	case EventNewProduct:
		s.newProduct(ctx, c, msg.Data)
	case EventDeleteProduct:
		s.deleteProduct(ctx, c, msg.Data)
	default:
		s.log().Warn("unknown realtime event", zap.String("type", msg.Type), zap.Uint64("client_id", c.id))
	}
}

func (s *Server) newProduct(ctx context.Context, c *Client, data any) {
	fields, ok := data.(map[string]any)
	if !ok {
		c.Send(errorMessage("product fields required"))
		return
	}

	p, err := s.Catalog.Create(ctx, catalog.Fields(fields))
	if err != nil {
		c.Send(errorMessage(clientMessage(err)))
		return
	}
	s.Hub.Broadcast(EventProductAdded, p)
}

func (s *Server) deleteProduct(ctx context.Context, c *Client, data any) {
	id := productID(data)
	if id == "" {
		c.Send(errorMessage("product id required"))
		return
	}

	if err := s.Catalog.Delete(ctx, id); err != nil {
		c.Send(errorMessage(clientMessage(err)))
		return
	}
	s.Hub.Broadcast(EventProductDeleted, map[string]any{"id": id})
}

func (s *Server) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

// productID accepts either a bare string id or an object with an id key.
func productID(data any) string {
	switch d := data.(type) {
	case string:
		return d
	case map[string]any:
		id, _ := d["id"].(string)
		return id
	default:
		return ""
	}
}

func errorMessage(msg string) Message {
	return Message{Type: EventError, Data: map[string]any{"message": msg}}
}

// clientMessage maps a manager failure to a client-safe message. Validation
// and not-found failures carry their own text; anything else stays generic.
func clientMessage(err error) string {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return catalog.ErrNotFound.Error()
	default:
		return "server error"
	}
}
