package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", s.LogLevel)
	}
	if !s.EnableMetrics {
		t.Error("EnableMetrics should default to true")
	}
	if s.HTTPPort != 8000 {
		t.Errorf("HTTPPort = %d, want 8000", s.HTTPPort)
	}
	if s.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", s.ShutdownTimeout)
	}
	if s.AMQP.ManagementPort != 15672 {
		t.Errorf("AMQP.ManagementPort = %d, want 15672", s.AMQP.ManagementPort)
	}
	if s.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", s.Database.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BRIDGEKIT_LOG_LEVEL", "debug")
	t.Setenv("BRIDGEKIT_HTTP_PORT", "9100")
	t.Setenv("BRIDGEKIT_DATABASE__NAME", "test")
	t.Setenv("BRIDGEKIT_AMQP__HOST", "rabbit.internal")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", s.LogLevel)
	}
	if s.HTTPPort != 9100 {
		t.Errorf("HTTPPort = %d, want 9100", s.HTTPPort)
	}
	if s.Database.Name != "test" {
		t.Errorf("Database.Name = %q, want test", s.Database.Name)
	}
	if s.AMQP.Host != "rabbit.internal" {
		t.Errorf("AMQP.Host = %q, want rabbit.internal", s.AMQP.Host)
	}
}

func TestLoad_InvalidLevel(t *testing.T) {
	t.Setenv("BRIDGEKIT_LOG_LEVEL", "chatty")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for bad log level")
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	s := Settings{
		LogLevel:        "nope",
		HTTPPort:        0,
		ShutdownTimeout: 0,
		UpstreamURL:     "not-a-url",
		TraceSample:     2,
	}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"LOG_LEVEL", "HTTP_PORT", "SHUTDOWN_TIMEOUT", "UPSTREAM_URL", "TRACE_SAMPLE"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %s: %q", want, msg)
		}
	}
}

func TestValidate_ConditionalRequirements(t *testing.T) {
	s := Settings{
		LogLevel:        "info",
		HTTPPort:        8000,
		ShutdownTimeout: time.Second,
		UpstreamURL:     "http://localhost:5000",
		EnableTracing:   true,
		EnableProfiling: true,
	}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected errors for missing endpoints")
	}
	msg := err.Error()
	if !strings.Contains(msg, "OTLP_ENDPOINT") {
		t.Errorf("missing OTLP_ENDPOINT error: %q", msg)
	}
	if !strings.Contains(msg, "PROFILING_SERVER") {
		t.Errorf("missing PROFILING_SERVER error: %q", msg)
	}
}

func TestDatabaseSettings_URL(t *testing.T) {
	d := DatabaseSettings{Host: "db", Port: 5432, User: "svc", Password: "p@ss/word", Name: "integration"}
	got := d.URL()
	if !strings.HasPrefix(got, "postgres://") {
		t.Fatalf("URL = %q", got)
	}
	if !strings.Contains(got, "@db:5432/integration") {
		t.Fatalf("URL = %q", got)
	}
	if strings.Contains(got, "p@ss/word") {
		t.Fatalf("password not escaped in %q", got)
	}
}

func TestDatabaseSettings_WithName(t *testing.T) {
	d := DatabaseSettings{Name: "integration"}
	clone := d.WithName("test")
	if clone.Name != "test" {
		t.Fatalf("WithName = %q", clone.Name)
	}
	if d.Name != "integration" {
		t.Fatal("WithName mutated the receiver")
	}
}

func TestAMQPSettings_ManagementURL(t *testing.T) {
	a := AMQPSettings{Host: "rabbit", ManagementPort: 15672}
	if got := a.ManagementURL(); got != "http://rabbit:15672/api/" {
		t.Fatalf("ManagementURL = %q", got)
	}
}
