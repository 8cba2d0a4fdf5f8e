package middleware

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// responseRecorder tracks status and size, and optionally keeps a copy of the body.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
	capture *bytes.Buffer
}

func newRecorder(w http.ResponseWriter, captureBody bool) *responseRecorder {
	rec := &responseRecorder{ResponseWriter: w}
	if captureBody {
		rec.capture = &bytes.Buffer{}
	}
	return rec
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.capture != nil {
		r.capture.Write(b)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Status reports 200 when the handler never wrote a header.
func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// routePattern must run after the mux served the request so chi has resolved the route.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
