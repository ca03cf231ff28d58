// Package app is the application bootstrap facility: it wires HTTP
// routes, health checks, metrics, and ordered lifespan managers into a
// runnable integration.
package app

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/health"
	"github.com/tbisgaard/bridgekit/internal/httpmw"
	"github.com/tbisgaard/bridgekit/internal/log"
	"github.com/tbisgaard/bridgekit/internal/metrics"
	"github.com/tbisgaard/bridgekit/lifespan"
)

type App struct {
	name     string
	settings config.Settings
	logger   log.Logger

	appCtx  *Context
	checks  *health.Registry
	stack   *lifespan.Stack
	metrics *metrics.Metrics

	router  chi.Router
	handler http.Handler
}

// New constructs an integration application. Logging is configured from
// the settings; metrics are wired when enabled, including the
// build_information record carrying version and build hash.
func New(name string, settings config.Settings) (*App, error) {
	lvl, err := log.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, err := log.New(log.Options{
		App:        name,
		Level:      lvl,
		JsonFormat: settings.LogJSON,
		Writer:     os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		name:     name,
		settings: settings,
		logger:   logger,
		appCtx:   newContext(name, settings),
		checks:   health.NewRegistry(),
		stack:    lifespan.NewStack(),
	}

	if settings.EnableMetrics {
		a.metrics = metrics.New()
		a.metrics.SetBuildInfo(settings.CommitTag, settings.CommitSHA)
	}

	a.router = a.routes()
	a.handler = a.buildHandler(a.router)
	return a, nil
}

// AddLifespanManager registers m at the given priority. Lowest
// priorities start first and stop last; use lifespan.DefaultPriority
// when ordering does not matter.
func (a *App) AddLifespanManager(m lifespan.Manager, priority int) {
	a.stack.Add(m, priority)
}

// AddDefaultLifespanManager registers m at lifespan.DefaultPriority.
func (a *App) AddDefaultLifespanManager(m lifespan.Manager) {
	a.stack.Add(m, lifespan.DefaultPriority)
}

// AddHealthcheck registers a named readiness check. Registering the
// same name twice is a configuration error.
func (a *App) AddHealthcheck(name string, check health.Check) error {
	return a.checks.Add(name, check)
}

// AddContext merges key-value pairs into the user context. Last write
// wins on key collision.
func (a *App) AddContext(kv map[string]any) {
	a.appCtx.Merge(kv)
}

// Context returns the shared application context.
func (a *App) Context() *Context { return a.appCtx }

// Router exposes the chi router so the host integration can register
// additional routes before the application starts serving.
func (a *App) Router() chi.Router { return a.router }

// Handler returns the assembled HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) buildHandler(r chi.Router) http.Handler {
	mws := []func(http.Handler) http.Handler{
		httpmw.Recover(a.logger, a.onPanic),
		httpmw.RequestID("X-Request-Id"),
	}
	if a.metrics != nil {
		mws = append(mws, a.metrics.Middleware)
	}
	mws = append(mws,
		traceMiddleware,
		httpmw.WithLogger(a.logger),
		httpmw.AccessLog(),
	)
	return httpmw.Chain(r, mws...)
}

// traceMiddleware starts a server span per request; probe endpoints are
// excluded to keep orchestrator polling out of the trace backend.
func traceMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case "/health/live", "/health/ready", "/metrics":
				return false
			}
			return true
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (a *App) onPanic() {
	if a.metrics != nil {
		a.metrics.ObservePanic()
	}
}
