package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nightshift/inventory-backend/api/responses"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	pkgredis "github.com/nightshift/inventory-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255

	standardReplayTTL = 24 * time.Hour
	stockReplayTTL    = 7 * 24 * time.Hour
	// pendingTTL bounds how long a crashed request can hold its key.
	pendingTTL = 2 * time.Minute
)

const (
	recordPending = "pending"
	recordDone    = "done"
)

// replayRule matches a method plus a path where "*" stands for exactly one segment.
type replayRule struct {
	method   string
	segments []string
	ttl      time.Duration
}

func rule(method, path string, ttl time.Duration) replayRule {
	return replayRule{method: method, segments: splitPath(path), ttl: ttl}
}

var replayRules = []replayRule{
	rule(http.MethodPost, "/api/v1/auth/register", standardReplayTTL),
	rule(http.MethodPost, "/api/v1/items", standardReplayTTL),
	rule(http.MethodPost, "/api/v1/vendors", standardReplayTTL),
	rule(http.MethodPost, "/api/v1/customers", standardReplayTTL),
	rule(http.MethodPost, "/api/v1/employees", standardReplayTTL),
	rule(http.MethodPost, "/api/v1/admin/reconcile", standardReplayTTL),
	rule(http.MethodPost, "/api/v1/orders", stockReplayTTL),
	rule(http.MethodPatch, "/api/v1/items/*/quantity", stockReplayTTL),
}

func (r replayRule) matches(method string, segments []string) bool {
	if r.method != method || len(r.segments) != len(segments) {
		return false
	}
	for i, seg := range r.segments {
		if seg != "*" && seg != segments[i] {
			return false
		}
	}
	return true
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func replayTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	for _, r := range replayRules {
		if r.matches(method, segments) {
			return r.ttl, true
		}
	}
	return 0, false
}

type idempotencyRecord struct {
	State       string `json:"state"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first completed response for a repeated Idempotency-Key.
// A key is claimed with a pending marker before the handler runs so concurrent
// duplicates are rejected instead of executed twice. 5xx responses release the key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Group middleware runs before nested routers resolve, so match on the request path.
			ttl, ok := replayTTL(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			id := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if id == "" || len(id) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required").
					WithDetails(map[string]any{"header": IdempotencyHeader, "max_length": maxIdempotencyKeyLen}))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(r.Method, r.URL.Path, body)
			key := store.IdempotencyKey(replayScope(r), id)

			pending, err := json.Marshal(idempotencyRecord{State: recordPending, RequestHash: hash})
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency marker"))
				return
			}
			claimed, err := store.SetNX(ctx, key, string(pending), pendingTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(w, r, store, logg, key, hash)
				return
			}

			rec := newRecorder(w, true)
			next.ServeHTTP(rec, r)

			// Detached so a client disconnect does not strand the pending marker.
			persistCtx := context.WithoutCancel(ctx)
			status := rec.Status()
			if status >= http.StatusInternalServerError {
				if delErr := store.Del(persistCtx, key); delErr != nil && logg != nil {
					logg.Error(ctx, "idempotency.release_failed", delErr)
				}
				return
			}

			payload, err := json.Marshal(idempotencyRecord{
				State:       recordDone,
				RequestHash: hash,
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.capture.Bytes(),
			})
			if err == nil {
				err = store.Set(persistCtx, key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replayExisting(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, logg *logger.Logger, key, hash string) {
	ctx := r.Context()
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// Released between the claim and the read; the client may retry.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConcurrency, "request with this idempotency key is in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != hash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request"))
		return
	}
	if record.State != recordDone {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConcurrency, "request with this idempotency key is in progress"))
		return
	}

	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

// replayScope keeps keys from colliding across tenants and callers.
func replayScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{TenantIDFromContext(ctx), ActorIDFromContext(ctx)}, "|")
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSuffix(path, "/")))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
