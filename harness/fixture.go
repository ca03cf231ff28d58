package harness

import (
	"context"
	"sync"
	"testing"

	"github.com/tbisgaard/bridgekit/config"
)

var templateOnce sync.Once

// IntegrationTest prepares everything an integration test needs and
// returns a ready harness:
//
//   - the template database is (re)built once per test run, with
//     migrate applied to it when not nil
//   - a fresh clone of the template replaces the test database and
//     the environment is pointed at it
//   - every broker queue is deleted
//   - the upstream database is snapshotted now and restored when the
//     test finishes
//   - an event emitter keeps upstream events flowing until teardown
//
// Teardown is registered through t.Cleanup and runs in reverse order.
func IntegrationTest(t *testing.T, migrate func(context.Context, config.DatabaseSettings) error) *Harness {
	t.Helper()
	ctx := context.Background()

	h, err := New()
	if err != nil {
		t.Fatalf("build harness: %v", err)
	}

	su, err := ConnectSuperuser(ctx, h.Settings.Database)
	if err != nil {
		t.Fatalf("connect superuser: %v", err)
	}
	t.Cleanup(func() { su.Close(context.Background()) })

	templateOnce.Do(func() {
		if err := su.SetupTemplate(ctx, h.Settings.Database, migrate); err != nil {
			t.Fatalf("set up template database: %v", err)
		}
	})
	if err := su.Isolate(ctx, t); err != nil {
		t.Fatalf("isolate database: %v", err)
	}

	if err := h.Broker.DeleteQueues(ctx); err != nil {
		t.Fatalf("delete queues: %v", err)
	}

	if err := h.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot upstream database: %v", err)
	}
	t.Cleanup(func() {
		if err := h.Restore(context.Background()); err != nil {
			t.Errorf("restore upstream database: %v", err)
		}
	})

	emitter := NewEventEmitter(h.Upstream, DefaultEmitInterval)
	emitter.Start(ctx)
	t.Cleanup(func() {
		if err := emitter.Stop(); err != nil {
			t.Errorf("event emitter: %v", err)
		}
	})

	return h
}
