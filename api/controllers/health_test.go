package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightshift/inventory-backend/pkg/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Nightshift-Env"))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	t.Run("all dependencies up", func(t *testing.T) {
		deps := map[string]Pinger{
			"db":    pingerFunc(func(context.Context) error { return nil }),
			"redis": pingerFunc(func(context.Context) error { return nil }),
		}
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("redis down", func(t *testing.T) {
		deps := map[string]Pinger{
			"db":    pingerFunc(func(context.Context) error { return nil }),
			"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		}
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
