package harness

import (
	"context"
	"io"

	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// Snapshot asks the upstream to save its database state.
func (h *Harness) Snapshot(ctx context.Context) error {
	return h.testingPost(ctx, "/testing/database/snapshot")
}

// Restore asks the upstream to roll its database back to the last
// snapshot.
func (h *Harness) Restore(ctx context.Context) error {
	return h.testingPost(ctx, "/testing/database/restore")
}

// EmitEvents asks the upstream to flush its pending AMQP events now.
func (h *Harness) EmitEvents(ctx context.Context) error {
	return h.testingPost(ctx, "/testing/amqp/emit")
}

func (h *Harness) testingPost(ctx context.Context, path string) error {
	resp, err := h.Upstream.Post(ctx, path, nil)
	if err != nil {
		return xerrors.Wrapf(err, "testing endpoint %s", path)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}
