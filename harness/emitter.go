package harness

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/tbisgaard/bridgekit/internal/xerrors"
	"github.com/tbisgaard/bridgekit/upstream"
)

// DefaultEmitInterval matches the cadence used in CI. The upstream
// emits events on its own, but far too slowly for a pleasant test
// loop.
const DefaultEmitInterval = 3 * time.Second

// EventEmitter repeatedly asks the upstream to emit its pending AMQP
// events while a test runs.
type EventEmitter struct {
	client   *upstream.Client
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewEventEmitter(client *upstream.Client, interval time.Duration) *EventEmitter {
	if interval <= 0 {
		interval = DefaultEmitInterval
	}
	return &EventEmitter{client: client, interval: interval}
}

// Start launches the emit loop. The loop stops on its own only when a
// request fails; that failure is reported by Stop.
func (e *EventEmitter) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})

	limiter := rate.NewLimiter(rate.Every(e.interval), 1)
	// consume the initial token so the first emit waits a full interval
	limiter.Allow()

	go func() {
		defer close(e.done)
		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			resp, err := e.client.Post(ctx, "/testing/amqp/emit", nil)
			if err != nil {
				if ctx.Err() == nil {
					e.err = xerrors.Wrap(err, "emit events")
				}
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}()
}

// Stop cancels the loop and waits for it to exit. Cancellation itself
// is not an error; a request failure that killed the loop earlier is
// returned so a misconfigured upstream surfaces instead of silently
// starving the test of events.
func (e *EventEmitter) Stop() error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	<-e.done
	if e.err != nil && !errors.Is(e.err, context.Canceled) {
		return e.err
	}
	return nil
}
