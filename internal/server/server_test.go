package server_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"LiveStore/internal/cart"
	"LiveStore/internal/catalog"
	"LiveStore/internal/realtime"
	"LiveStore/internal/server"
	"LiveStore/internal/storage"
	"LiveStore/pkg/kit"
)

func newTS(t *testing.T, mutate func(*server.Deps)) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	products := catalog.NewManager(storage.NewFile[catalog.Product](filepath.Join(dir, "products.json")), zap.NewNop())
	carts := cart.NewManager(storage.NewFile[cart.Cart](filepath.Join(dir, "carts.json")), zap.NewNop())

	registry := prometheus.NewRegistry()
	hub := realtime.NewHub(zap.NewNop(), realtime.NewMetrics(registry))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()
	t.Cleanup(cancel)

	deps := server.Deps{
		Log:      zap.NewNop(),
		Service:  "livestore",
		Registry: registry,
		Catalog:  &catalog.Server{Manager: products, Log: zap.NewNop()},
		Carts:    &cart.Server{Manager: carts, Log: zap.NewNop()},
		Realtime: &realtime.Server{Hub: hub, Catalog: products, Log: zap.NewNop()},
	}
	if mutate != nil {
		mutate(&deps)
	}

	ts := httptest.NewServer(server.NewHandler(deps))
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTS(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestAPIRoutesAreMounted(t *testing.T) {
	ts := newTS(t, nil)

	body, _ := json.Marshal(map[string]any{
		"title": "t", "description": "d", "code": "c",
		"price": 1, "stock": 1, "category": "g",
	})
	resp, err := http.Post(ts.URL+"/api/products", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post product: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post product: got status %d, want 201", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/carts", "application/json", nil)
	if err != nil {
		t.Fatalf("post cart: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post cart: got status %d, want 201", resp.StatusCode)
	}
}

func TestMetricsDisabledByDefault(t *testing.T) {
	ts := newTS(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", resp.StatusCode)
	}
}

func TestMetricsRequireToken(t *testing.T) {
	ts := newTS(t, func(d *server.Deps) {
		d.MetricsEnabled = true
		d.MetricsToken = "sekrit"
	})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthenticated: got status %d, want 403", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated: got status %d, want 200", resp.StatusCode)
	}
}

func TestRateLimitKicksIn(t *testing.T) {
	ts := newTS(t, func(d *server.Deps) {
		d.RateLimit = kit.NewIPRateLimiter(3, time.Minute)
	})

	var last int
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/api/products")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", last)
	}
}
