package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"LiveStore/pkg/kit"
)

const maxBodyBytes = 1 << 20

// Server exposes the catalog Manager over /api/products.
type Server struct {
	Manager *Manager
	Log     *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.list)
	r.Post("/", s.create)
	r.Get("/{id}", s.get)
	r.Put("/{id}", s.update)
	r.Delete("/{id}", s.delete)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Manager.List(r.Context())
	if err != nil {
		s.logError("list products failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid id", nil)
		return
	}

	p, ok, err := s.Manager.Get(r.Context(), id)
	if err != nil {
		s.logError("get product failed", err, zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	p, err := s.Manager.Create(r.Context(), fields)
	if err != nil {
		s.writeManagerError(w, r, "create product failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid id", nil)
		return
	}

	fields, err := decodeFields(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	p, err := s.Manager.Update(r.Context(), id, fields)
	if err != nil {
		s.writeManagerError(w, r, "update product failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid id", nil)
		return
	}

	if err := s.Manager.Delete(r.Context(), id); err != nil {
		s.writeManagerError(w, r, "delete product failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"message": "product deleted", "id": id})
}

func (s *Server) writeManagerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
	case errors.As(err, &verr):
		kit.WriteError(w, r, http.StatusBadRequest, verr.Error(), map[string]any{"missing": verr.Missing})
	default:
		s.logError(msg, err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logError(msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
}

func decodeFields(w http.ResponseWriter, r *http.Request) (Fields, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	var fields Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
