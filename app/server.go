package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// Server timeout defaults.
const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1 MB
)

// Start enters all lifespan managers in priority order and begins
// serving HTTP. The returned stop shuts the server down gracefully and
// then releases the managers in reverse entry order; it is safe to call
// more than once. A startup failure releases everything already entered
// before returning.
func (a *App) Start(ctx context.Context) (func(context.Context) error, error) {
	if err := a.stack.Up(ctx); err != nil {
		return nil, xerrors.Wrap(err, "lifespan startup")
	}
	a.logger.Info(ctx, "lifespan managers started", "count", a.stack.Len())

	addr := fmt.Sprintf(":%d", a.settings.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		err = xerrors.Wrapf(err, "listen on %s", addr)
		return nil, errors.Join(err, a.stack.Down(ctx))
	}

	go func() {
		a.logger.Info(ctx, "http server listening", "addr", addr, "name", a.name)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			a.logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, a.settings.ShutdownTimeout)
			defer cancel()
			retErr = errors.Join(srv.Shutdown(c), a.stack.Down(sctx))
		})
		return retErr
	}
	return stop, nil
}

// Run starts the application and blocks until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	stop, err := a.Start(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	// the run context is already cancelled; shut down on a fresh one
	return stop(context.WithoutCancel(ctx))
}
