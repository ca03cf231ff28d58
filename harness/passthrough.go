package harness

import (
	"net/http"
	"net/url"

	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// PassthroughTransport routes requests for an allow-listed set of
// hosts to the real network and everything else to a mock. Tests can
// install it as a client's transport to mock third-party APIs while
// the backing services stay reachable.
type PassthroughTransport struct {
	allowed map[string]struct{}
	real    http.RoundTripper
	mock    http.RoundTripper
}

// NewPassthroughTransport allows hosts through to the default
// transport and sends everything else to mock. A nil mock fails the
// request, which keeps unexpected outbound calls from escaping a test.
func NewPassthroughTransport(hosts []string, mock http.RoundTripper) *PassthroughTransport {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		allowed[h] = struct{}{}
	}
	return &PassthroughTransport{
		allowed: allowed,
		real:    http.DefaultTransport,
		mock:    mock,
	}
}

func (t *PassthroughTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := t.allowed[req.URL.Hostname()]; ok {
		return t.real.RoundTrip(req)
	}
	if t.mock == nil {
		return nil, xerrors.Newf("unexpected request to %s: host not in passthrough list and no mock installed", req.URL.Host)
	}
	return t.mock.RoundTrip(req)
}

// PassthroughHosts lists the backing-service hosts tests talk to for
// real: the upstream, the auth server, the broker, and localhost.
func PassthroughHosts(settings config.Settings) []string {
	hosts := []string{"localhost"}
	if u, err := url.Parse(settings.UpstreamURL); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	if u, err := url.Parse(settings.AuthServer); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	if settings.AMQP.Host != "" {
		hosts = append(hosts, settings.AMQP.Host)
	}
	return hosts
}
