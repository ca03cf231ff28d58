// Package config loads integration settings from the environment.
//
// All values are read with the BRIDGEKIT_ prefix; nested sections use a
// double underscore, e.g. BRIDGEKIT_DATABASE__NAME or BRIDGEKIT_AMQP__HOST.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tbisgaard/bridgekit/internal/log"
)

// Settings is the configuration shape shared by the bootstrap facility
// and the integration test harness.
type Settings struct {
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	EnableMetrics bool `mapstructure:"enable_metrics"`

	// Version and build hash exposed through build_information.
	CommitTag string `mapstructure:"commit_tag"`
	CommitSHA string `mapstructure:"commit_sha"`

	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Base URL of the upstream platform this integration talks to.
	UpstreamURL string `mapstructure:"upstream_url"`

	// Token endpoint pieces for the client-credentials flow.
	AuthServer   string `mapstructure:"auth_server"`
	AuthRealm    string `mapstructure:"auth_realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	TraceSample   float64 `mapstructure:"trace_sample"`

	EnableProfiling bool   `mapstructure:"enable_profiling"`
	ProfilingServer string `mapstructure:"profiling_server"`
	ProfilingTenant string `mapstructure:"profiling_tenant"`

	AMQP     AMQPSettings     `mapstructure:"amqp"`
	Database DatabaseSettings `mapstructure:"database"`
}

type AMQPSettings struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ManagementPort int    `mapstructure:"management_port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Vhost          string `mapstructure:"vhost"`
}

// ManagementURL is the base of the broker's HTTP management API.
func (a AMQPSettings) ManagementURL() string {
	return fmt.Sprintf("http://%s:%d/api/", a.Host, a.ManagementPort)
}

type DatabaseSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// URL renders a postgres connection string for the given database name.
func (d DatabaseSettings) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// WithName returns a copy pointing at a different database.
func (d DatabaseSettings) WithName(name string) DatabaseSettings {
	d.Name = name
	return d
}

const envPrefix = "BRIDGEKIT"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", true)
	v.SetDefault("enable_metrics", true)
	v.SetDefault("commit_tag", "dev")
	v.SetDefault("commit_sha", "none")
	v.SetDefault("http_port", 8000)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("upstream_url", "http://localhost:5000")
	v.SetDefault("auth_server", "http://localhost:8090/auth")
	v.SetDefault("auth_realm", "platform")
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("enable_tracing", false)
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("trace_sample", 0.0)
	v.SetDefault("enable_profiling", false)
	v.SetDefault("profiling_server", "")
	v.SetDefault("profiling_tenant", "")
	v.SetDefault("amqp.host", "localhost")
	v.SetDefault("amqp.port", 5672)
	v.SetDefault("amqp.management_port", 15672)
	v.SetDefault("amqp.user", "guest")
	v.SetDefault("amqp.password", "guest")
	v.SetDefault("amqp.vhost", "/")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "integration")
}

// Load reads settings from the environment and validates them.
func Load() (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()
	setDefaults(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that settings are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func (s Settings) Validate() error {
	var errs []error

	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", s.LogLevel, err))
	}

	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", s.HTTPPort))
	}

	if s.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %v (must be > 0)", s.ShutdownTimeout))
	}

	if u, err := url.Parse(s.UpstreamURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("UPSTREAM_URL must be a URL (got %q)", s.UpstreamURL))
	}

	if s.TraceSample < 0 || s.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", s.TraceSample))
	}

	if s.EnableTracing && s.OTLPEndpoint == "" {
		errs = append(errs, errors.New("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
	}

	if s.EnableProfiling && s.ProfilingServer == "" {
		errs = append(errs, errors.New("PROFILING_SERVER required when ENABLE_PROFILING=true"))
	}

	return errors.Join(errs...)
}
