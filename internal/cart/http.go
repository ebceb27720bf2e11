package cart

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"LiveStore/pkg/kit"
)

const maxBodyBytes = 64 << 10

// Server exposes the cart Manager over /api/carts.
type Server struct {
	Manager *Manager
	Log     *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.create)
	r.Get("/{id}", s.lineItems)
	r.Post("/{id}/product/{productID}", s.addItem)
	// Plural alias kept for client compatibility.
	r.Post("/{id}/products/{productID}", s.addItem)

	return r
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	c, err := s.Manager.Create(r.Context())
	if err != nil {
		s.logError("create cart failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, c)
}

func (s *Server) lineItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	items, found, err := s.Manager.LineItems(r.Context(), id)
	if err != nil {
		s.logError("list line items failed", err, zap.String("cart_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	// The original route treats an empty cart the same as a missing one.
	if !found || len(items) == 0 {
		kit.WriteError(w, r, http.StatusNotFound, "cart not found or empty", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "id")
	productID := chi.URLParam(r, "productID")

	c, err := s.Manager.AddItem(r.Context(), cartID, productID, decodeQuantity(w, r))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			kit.WriteError(w, r, http.StatusNotFound, "cart not found", map[string]any{"id": cartID})
			return
		}
		s.logError("add line item failed", err, zap.String("cart_id", cartID), zap.String("product_id", productID))
		kit.WriteError(w, r, http.StatusBadRequest, "bad request", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) logError(msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
}

// decodeQuantity pulls an optional quantity out of the request body. Numbers
// and numeric strings pass through as-is, zero included; anything else,
// including an absent or unparsable body, defaults to 1.
func decodeQuantity(w http.ResponseWriter, r *http.Request) int {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	var body struct {
		Quantity any `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return 1
	}

	switch q := body.Quantity.(type) {
	case float64:
		return int(q)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil {
			return 1
		}
		return n
	default:
		return 1
	}
}
