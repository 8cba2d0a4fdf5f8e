package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nightshift/inventory-backend/api/responses"
)

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = responses.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.Header.Set(RequestIDHeader, "edge-7f3a:01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "edge-7f3a:01", seen)
	assert.Equal(t, "edge-7f3a:01", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDReplacesMissingOrUnsafeHeader(t *testing.T) {
	for name, header := range map[string]string{
		"missing":  "",
		"newline":  "abc\nInjected: yes",
		"too long": string(make([]byte, 200)),
	} {
		t.Run(name, func(t *testing.T) {
			var seen string
			handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = responses.RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header[RequestIDHeader] = []string{header}
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		})
	}
}
