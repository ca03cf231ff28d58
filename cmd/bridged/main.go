// bridged is a reference integration binary: it boots the application
// with a database pool and an authenticated upstream client and serves
// until interrupted. Real integrations embed the same pieces in their
// own main.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tbisgaard/bridgekit/app"
	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/database"
	"github.com/tbisgaard/bridgekit/internal/log"
	"github.com/tbisgaard/bridgekit/internal/otelx"
	"github.com/tbisgaard/bridgekit/internal/prof"
	v "github.com/tbisgaard/bridgekit/internal/version"
	"github.com/tbisgaard/bridgekit/upstream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var showVersion bool
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (commit=%s, build_date=%s, go=%s)\n",
			v.AppName, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion)
		os.Exit(0)
	}

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, err := log.ParseLevel(settings.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", settings.LogLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:        v.AppName,
		Level:      lvl,
		JsonFormat: settings.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "bridged")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing",
		"version", vi.Version,
		"commit", vi.Commit,
		"go_version", vi.GoVersion,
		"http_port", settings.HTTPPort,
		"upstream_url", settings.UpstreamURL,
		"enable_tracing", settings.EnableTracing,
		"enable_profiling", settings.EnableProfiling,
	)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       settings.EnableProfiling,
		AppName:       v.AppName,
		ServerAddress: settings.ProfilingServer,
		TenantID:      settings.ProfilingTenant,
		Tags: map[string]string{
			"app":     v.AppName,
			"version": vi.Version,
			"commit":  vi.Commit,
		},
	})
	if err != nil {
		L.Error(ctx, err, "profiling start failed", "server", settings.ProfilingServer)
	}
	defer stopProf()

	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:  settings.EnableTracing,
		Endpoint: settings.OTLPEndpoint,
		Insecure: true,
		Sample:   settings.TraceSample,
		Service:  v.AppName,
		Version:  vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	a, err := app.New("bridged", settings)
	if err != nil {
		L.Error(ctx, err, "application init failed")
		os.Exit(1)
	}

	db := database.New(settings.Database)
	a.AddLifespanManager(db.Manager(), 100)
	if err := a.AddHealthcheck("database", db.Healthcheck()); err != nil {
		L.Error(ctx, err, "register database healthcheck")
		os.Exit(1)
	}

	mo := upstream.New(settings)
	a.AddDefaultLifespanManager(mo.Manager())
	if err := a.AddHealthcheck("upstream", mo.Healthcheck("/version")); err != nil {
		L.Error(ctx, err, "register upstream healthcheck")
		os.Exit(1)
	}
	a.AddContext(map[string]any{"upstream_client": mo, "database": db})

	if err := a.Run(ctx); err != nil {
		L.Error(ctx, err, "application terminated")
		os.Exit(1)
	}
	L.Info(context.WithoutCancel(ctx), "shutdown complete")
}
