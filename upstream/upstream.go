// Package upstream provides the HTTP client integrations use to talk
// to the system they synchronize against. The client authenticates
// with OAuth2 client credentials against a Keycloak-style token
// endpoint and refreshes tokens transparently.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/health"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
	"github.com/tbisgaard/bridgekit/lifespan"
)

const defaultTimeout = 120 * time.Second

// TokenURL renders the token endpoint for an auth server and realm.
func TokenURL(authServer, realm string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(authServer, "/"), realm)
}

// Client is a base-URL-anchored HTTP client for the upstream system.
type Client struct {
	base string
	http *http.Client
}

// New builds an authenticated client from the integration settings.
// Tokens are fetched lazily on first use and refreshed before expiry.
func New(settings config.Settings) *Client {
	cc := clientcredentials.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		TokenURL:     TokenURL(settings.AuthServer, settings.AuthRealm),
	}
	hc := cc.Client(context.Background())
	hc.Timeout = defaultTimeout
	return &Client{
		base: strings.TrimRight(settings.UpstreamURL, "/"),
		http: hc,
	}
}

// NewUnauthenticated builds a client without credentials. The test
// harness uses it against endpoints that sit outside authentication.
func NewUnauthenticated(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
}

// BaseURL returns the upstream base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// HTTP exposes the underlying http.Client, for callers that need to
// hand it to generated or third-party API bindings.
func (c *Client) HTTP() *http.Client { return c.http }

// Get performs a GET against path and fails on any non-2xx status.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, xerrors.Wrapf(err, "build request GET %s", path)
	}
	return c.do(req)
}

// Post sends body as JSON to path and fails on any non-2xx status. A
// nil body sends an empty request.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, xerrors.Wrapf(err, "encode body for POST %s", path)
		}
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, r)
	if err != nil {
		return nil, xerrors.Wrapf(err, "build request POST %s", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, xerrors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, xerrors.Newf("%s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, string(detail))
	}
	return resp, nil
}

// Manager returns a lifespan manager for the client. Startup needs no
// work since tokens are fetched on demand; shutdown drops any idle
// connections still held by the transport.
func (c *Client) Manager() lifespan.Manager {
	return lifespan.Func{
		StopFunc: func(ctx context.Context) error {
			c.http.CloseIdleConnections()
			return nil
		},
	}
}

// Healthcheck reports whether the upstream answers at path. Transport
// errors mean not ready, not a readiness failure of the probe itself.
func (c *Client) Healthcheck(path string) health.Check {
	return func(ctx context.Context) (bool, error) {
		resp, err := c.Get(ctx, path)
		if err != nil {
			return false, nil
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return true, nil
	}
}
