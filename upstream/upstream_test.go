package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTokenURL(t *testing.T) {
	got := TokenURL("http://keycloak:8080/auth/", "platform")
	want := "http://keycloak:8080/auth/realms/platform/protocol/openid-connect/token"
	if got != want {
		t.Fatalf("TokenURL = %q, want %q", got, want)
	}
}

func TestPost_SendsJSON(t *testing.T) {
	var gotBody map[string]any
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewUnauthenticated(srv.URL)
	resp, err := c.Post(context.Background(), "/objects", map[string]any{"uuid": "abc"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp.Body.Close()

	if gotCT != "application/json" {
		t.Fatalf("Content-Type = %q", gotCT)
	}
	if gotBody["uuid"] != "abc" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestPost_NilBody(t *testing.T) {
	var length int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		length = r.ContentLength
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewUnauthenticated(srv.URL)
	resp, err := c.Post(context.Background(), "/trigger", nil)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp.Body.Close()
	if length != 0 {
		t.Fatalf("ContentLength = %d, want 0", length)
	}
}

func TestDo_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewUnauthenticated(srv.URL)
	_, err := c.Get(context.Background(), "/objects")
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if !strings.Contains(err.Error(), "status 502") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error = %v", err)
	}
}

func TestHealthcheck(t *testing.T) {
	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewUnauthenticated(srv.URL)
	check := c.Healthcheck("/version")

	status = http.StatusOK
	if ok, err := check(context.Background()); err != nil || !ok {
		t.Fatalf("healthy upstream: ok=%v err=%v", ok, err)
	}

	status = http.StatusServiceUnavailable
	if ok, err := check(context.Background()); err != nil || ok {
		t.Fatalf("unhealthy upstream: ok=%v err=%v", ok, err)
	}

	srv.Close()
	if ok, err := check(context.Background()); err != nil || ok {
		t.Fatalf("unreachable upstream: ok=%v err=%v", ok, err)
	}
}

func TestBaseURL_TrailingSlashTrimmed(t *testing.T) {
	c := NewUnauthenticated("http://localhost:5000/")
	if c.BaseURL() != "http://localhost:5000" {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}
}

func TestManager_StopClosesIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := NewUnauthenticated(srv.URL)
	if err := c.Manager().Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := c.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if err := c.Manager().Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
