// Package harness is the integration-test toolkit: it isolates the
// integration's own database between tests, purges broker queues,
// keeps upstream events flowing quickly, and snapshots the upstream
// database around each test.
package harness

import (
	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
	"github.com/tbisgaard/bridgekit/upstream"
)

// TemplateDatabase is the migrated database each test clones from.
const TemplateDatabase = "test_template"

// TestDatabase is the per-test clone the application under test uses.
const TestDatabase = "test"

// Harness bundles the clients the integration-test fixtures need. It
// is configured from the same environment the application reads.
type Harness struct {
	Settings config.Settings

	// Upstream talks to the system under integration without
	// authentication; the testing endpoints sit outside auth.
	Upstream *upstream.Client

	// Broker talks to the message broker's management API.
	Broker *Broker
}

// New reads settings from the environment and builds the harness.
func New() (*Harness, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, xerrors.Wrap(err, "load harness settings")
	}
	return FromSettings(settings), nil
}

// FromSettings builds a harness from explicit settings.
func FromSettings(settings config.Settings) *Harness {
	return &Harness{
		Settings: settings,
		Upstream: upstream.NewUnauthenticated(settings.UpstreamURL),
		Broker:   NewBroker(settings.AMQP),
	}
}
