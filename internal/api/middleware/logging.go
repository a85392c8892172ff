package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// sessionHeader is the capture-session origin header. Redeclared here so the
// middleware does not depend on the handlers package.
const sessionHeader = "X-Borg-Session"

// Logger returns a request logging middleware using zerolog. Frames submitted
// by a capture session carry its id in the session header; when present it is
// attached to the request log line.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code and size
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				evt := logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr)
				if sess := r.Header.Get(sessionHeader); sess != "" {
					evt = evt.Str("session", sess)
				}
				evt.Msg("request served")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
