package httpmw

import (
	"net/http"

	"github.com/tbisgaard/bridgekit/internal/log"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// Recover converts handler panics into 500 responses. onPanic, when
// non-nil, runs after logging (e.g. to bump a counter).
func Recover(base log.Logger, onPanic func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// the server handles aborted responses itself
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = xerrors.Newf("panic: %v", rec)
				}
				L := log.FromContext(r.Context())
				if L == log.Nop() && base != nil {
					L = base
				}
				L.Error(r.Context(), err, "panic recovered in http handler",
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				)
				if onPanic != nil {
					onPanic()
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
