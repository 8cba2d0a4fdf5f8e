package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
	dels int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
		f.dels++
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func keyedRequest(method, path, key, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), "body=%s", rec.Body.String())
	return payload.Error.Code
}

func TestReplayTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"order create", http.MethodPost, "/api/v1/orders", stockReplayTTL, true},
		{"trailing slash", http.MethodPost, "/api/v1/orders/", stockReplayTTL, true},
		{"manual restock", http.MethodPatch, "/api/v1/items/7f1c/quantity", stockReplayTTL, true},
		{"item create", http.MethodPost, "/api/v1/items", standardReplayTTL, true},
		{"reconcile", http.MethodPost, "/api/v1/admin/reconcile", standardReplayTTL, true},
		{"nested quantity", http.MethodPatch, "/api/v1/items/a/b/quantity", 0, false},
		{"order update", http.MethodPut, "/api/v1/orders/abc", 0, false},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, ok := replayTTL(tt.method, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, ttl)
		})
	}
}

func TestIdempotencyRequiresKey(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, key := range []string{"", strings.Repeat("k", maxIdempotencyKeyLen+1)} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/orders", key, `{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
	}
	assert.False(t, called)
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"ord-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(http.MethodPost, "/api/v1/orders", "abc", `{"customer_id":"c1"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, keyedRequest(http.MethodPost, "/api/v1/orders", "abc", `{"customer_id":"c1"}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.JSONEq(t, `{"data":{"id":"ord-1"}}`, second.Body.String())
	assert.Equal(t, 1, calls)

	for _, ttl := range store.ttls {
		assert.Equal(t, stockReplayTTL, ttl)
	}
}

func TestIdempotencyRejectsChangedRequest(t *testing.T) {
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/items", "xyz", `{"name":"a"}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/items", "xyz", `{"name":"b"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/vendors", "xyz", `{"name":"a"}`))
	assert.Equal(t, http.StatusConflict, rec.Code, "same key on another endpoint")
}

func TestIdempotencyPendingKeyIsConcurrencyConflict(t *testing.T) {
	store := newFakeStore()
	var handler http.Handler
	var inner *httptest.ResponseRecorder
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = httptest.NewRecorder()
		handler.ServeHTTP(inner, keyedRequest(http.MethodPost, "/api/v1/orders", "dup", `{}`))
		w.WriteHeader(http.StatusCreated)
	}))

	outer := httptest.NewRecorder()
	handler.ServeHTTP(outer, keyedRequest(http.MethodPost, "/api/v1/orders", "dup", `{}`))

	assert.Equal(t, http.StatusCreated, outer.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeConcurrency), errorCode(t, inner))
	assert.Equal(t, "1", inner.Header().Get("Retry-After"))
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(http.MethodPost, "/api/v1/orders", "retry", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Empty(t, store.data)
	assert.Equal(t, 1, store.dels)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, keyedRequest(http.MethodPost, "/api/v1/orders", "retry", `{}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMatchesRequestPathInsideNestedRouter(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(newFakeStore(), nil))
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
			r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/orders", "", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, keyedRequest(http.MethodPut, "/api/v1/orders/abc", "", `{}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}
