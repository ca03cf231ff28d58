package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// Broker is a client for the message broker's HTTP management API.
type Broker struct {
	base string
	user string
	pass string
	http *http.Client
}

func NewBroker(settings config.AMQPSettings) *Broker {
	return &Broker{
		base: settings.ManagementURL(),
		user: settings.User,
		pass: settings.Password,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

type queue struct {
	Name                   string `json:"name"`
	Vhost                  string `json:"vhost"`
	MessagesReady          int    `json:"messages_ready"`
	MessagesUnacknowledged int    `json:"messages_unacknowledged"`
	MessageStats           struct {
		Ack int `json:"ack"`
	} `json:"message_stats"`
}

func (b *Broker) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+path, nil)
	if err != nil {
		return xerrors.Wrapf(err, "build request GET %s", path)
	}
	req.SetBasicAuth(b.user, b.pass)
	resp, err := b.http.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return xerrors.Newf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xerrors.Wrapf(err, "decode response for GET %s", path)
	}
	return nil
}

func (b *Broker) listQueues(ctx context.Context) ([]queue, error) {
	var queues []queue
	if err := b.get(ctx, "queues", &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

// DeleteQueues removes every queue on the broker. Deletions run
// concurrently; the first failure aborts the rest.
func (b *Broker) DeleteQueues(ctx context.Context) error {
	queues, err := b.listQueues(ctx)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queues {
		// vhost and name must both be escaped, including `/`. The
		// default vhost is literally `/` and must become %2F.
		path := fmt.Sprintf("queues/%s/%s",
			url.PathEscape(q.Vhost), url.PathEscape(q.Name))
		g.Go(func() error {
			return b.delete(gctx, path)
		})
	}
	return g.Wait()
}

func (b *Broker) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.base+path, nil)
	if err != nil {
		return xerrors.Wrapf(err, "build request DELETE %s", path)
	}
	req.SetBasicAuth(b.user, b.pass)
	resp, err := b.http.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "DELETE %s", path)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return xerrors.Newf("DELETE %s: status %d", path, resp.StatusCode)
	}
	return nil
}

// NumQueuedMessages counts messages waiting or unacknowledged across
// all queues.
func (b *Broker) NumQueuedMessages(ctx context.Context) (int, error) {
	queues, err := b.listQueues(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for _, q := range queues {
		n += q.MessagesReady + q.MessagesUnacknowledged
	}
	return n, nil
}

// NumConsumedMessages counts acknowledged deliveries across all queues.
func (b *Broker) NumConsumedMessages(ctx context.Context) (int, error) {
	queues, err := b.listQueues(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for _, q := range queues {
		n += q.MessageStats.Ack
	}
	return n, nil
}
