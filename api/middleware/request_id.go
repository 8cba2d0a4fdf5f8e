package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/nightshift/inventory-backend/api/responses"
	"github.com/nightshift/inventory-backend/pkg/logger"
)

const RequestIDHeader = "X-Request-Id"

// inbound ids are echoed into logs and headers, so only accept a safe alphabet.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID keeps a well formed inbound X-Request-Id or mints a uuid, then
// exposes it to the logger and to error envelopes.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if !requestIDPattern.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			ctx := responses.WithRequestID(r.Context(), reqID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
