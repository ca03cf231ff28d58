package httpmw

import (
	"net"
	"net/http"
	"time"

	"github.com/tbisgaard/bridgekit/internal/log"
)

type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WithLogger seeds the request context with a logger annotated with
// request-scoped fields so handlers can use log.FromContext.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}

			fields := []any{
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"network.peer.address", peer,
			}
			if id := RequestIDFromContext(ctx); id != "" {
				fields = append(fields, "request_id", id)
			}

			L := base.With(fields...)
			r = r.WithContext(log.WithContext(ctx, L))
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog emits one line per completed request at debug level, except
// server errors which log at warn.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			status := rw.status
			if status == 0 {
				status = http.StatusOK
			}

			L := log.FromContext(r.Context())
			fields := []any{
				"http.response.status_code", status,
				"http.response.body.size", rw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if status >= 500 {
				L.Warn(r.Context(), "request completed", fields...)
				return
			}
			L.Debug(r.Context(), "request completed", fields...)
		})
	}
}
