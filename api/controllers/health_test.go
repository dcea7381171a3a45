package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/auction-archive/pkg/config"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := serve(HealthReady(cfg, map[string]Pinger{"db": ok, "redis": nil}, testLogger()), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = serve(HealthReady(cfg, map[string]Pinger{"db": ok, "storage": down}, testLogger()), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec = serve(HealthLive(cfg), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Header().Get("X-Archive-Env") != "test" {
		t.Fatalf("expected env header")
	}
}
