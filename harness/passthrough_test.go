package harness

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tbisgaard/bridgekit/config"
)

type recordingTransport struct {
	hosts []string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.hosts = append(rt.hosts, req.URL.Hostname())
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("mocked")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestPassthrough_AllowedHostHitsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "real")
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	mock := &recordingTransport{}
	client := &http.Client{Transport: NewPassthroughTransport([]string{u.Hostname()}, mock)}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "real" {
		t.Fatalf("body = %q, want real", body)
	}
	if len(mock.hosts) != 0 {
		t.Fatalf("mock received %v", mock.hosts)
	}
}

func TestPassthrough_OtherHostHitsMock(t *testing.T) {
	mock := &recordingTransport{}
	client := &http.Client{Transport: NewPassthroughTransport([]string{"backing.example"}, mock)}

	resp, err := client.Get("http://thirdparty.example/v1/things")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "mocked" {
		t.Fatalf("body = %q, want mocked", body)
	}
	if len(mock.hosts) != 1 || mock.hosts[0] != "thirdparty.example" {
		t.Fatalf("mock hosts = %v", mock.hosts)
	}
}

func TestPassthrough_NoMockFailsClosed(t *testing.T) {
	client := &http.Client{Transport: NewPassthroughTransport([]string{"backing.example"}, nil)}
	_, err := client.Get("http://thirdparty.example/v1/things")
	if err == nil {
		t.Fatal("expected error for unmocked host")
	}
	if !strings.Contains(err.Error(), "thirdparty.example") {
		t.Fatalf("error = %v", err)
	}
}

func TestPassthroughHosts(t *testing.T) {
	s := config.Settings{
		UpstreamURL: "http://mo-service:5000",
		AuthServer:  "http://keycloak:8080/auth",
		AMQP:        config.AMQPSettings{Host: "rabbitmq"},
	}
	hosts := PassthroughHosts(s)

	want := map[string]bool{
		"localhost": false, "mo-service": false, "keycloak": false, "rabbitmq": false,
	}
	for _, h := range hosts {
		if _, ok := want[h]; !ok {
			t.Fatalf("unexpected host %q", h)
		}
		want[h] = true
	}
	for h, seen := range want {
		if !seen {
			t.Fatalf("host %q missing from %v", h, hosts)
		}
	}
}
