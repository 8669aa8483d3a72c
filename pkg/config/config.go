// Package config loads SWire settings from YAML files. Values may reference the environment
// with ${VAR} or ${VAR:-default}. A loaded Config builds the runtime, server, client, logger
// and metrics recorder it describes.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Suhaibinator/SWire/pkg/client"
	"github.com/Suhaibinator/SWire/pkg/codec"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	promrecorder "github.com/Suhaibinator/SWire/pkg/metrics/prometheus"
	"github.com/Suhaibinator/SWire/pkg/middleware"
	"github.com/Suhaibinator/SWire/pkg/server"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

// Config is the root of a configuration file.
type Config struct {
	// Encodings lists encoding names in registration order. The first one encodes client
	// requests and wins ties during negotiation.
	Encodings []string      `yaml:"encodings"`
	Server    ServerConfig  `yaml:"server"`
	Client    ClientConfig  `yaml:"client"`
	Logging   LoggingConfig `yaml:"logging"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures server.Server and its listener.
type ServerConfig struct {
	Address              string   `yaml:"address"`
	TraceIDBufferSize    int      `yaml:"traceIdBufferSize"`
	LocalBacklog         int      `yaml:"localBacklog"`
	SlowRequestThreshold Duration `yaml:"slowRequestThreshold"`
	ReadTimeout          Duration `yaml:"readTimeout"`
	WriteTimeout         Duration `yaml:"writeTimeout"`
	ShutdownTimeout      Duration `yaml:"shutdownTimeout"`

	// ClientIP enables client address logging when set.
	ClientIP *ClientIPConfig `yaml:"clientIp"`
}

// ClientIPConfig selects where client addresses are read from.
type ClientIPConfig struct {
	// Source is one of remote_addr, x_forwarded_for, x_real_ip or custom_header.
	Source       string `yaml:"source"`
	CustomHeader string `yaml:"customHeader"`
	TrustProxy   bool   `yaml:"trustProxy"`
}

// ClientConfig configures client.Client.
type ClientConfig struct {
	BaseURL   string   `yaml:"baseUrl"`
	Timeout   Duration `yaml:"timeout"`
	RateLimit int      `yaml:"rateLimit"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig configures the Prometheus recorder.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		Encodings: []string{codec.NameJSON, codec.NameCBOR},
		Server: ServerConfig{
			Address:           ":8080",
			TraceIDBufferSize: 1024,
			LocalBacklog:      64,
			ShutdownTimeout:   Duration(10 * time.Second),
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Namespace: "swire"},
	}
}

// ValidationError is one invalid setting.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is every invalid setting of a configuration.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Encodings) == 0 {
		add("encodings", "at least one encoding is required")
	}
	seen := make(map[string]bool, len(c.Encodings))
	for i, name := range c.Encodings {
		path := fmt.Sprintf("encodings[%d]", i)
		if _, err := codec.ByName(name); err != nil {
			add(path, "%v", err)
		}
		if seen[name] {
			add(path, "duplicate encoding %q", name)
		}
		seen[name] = true
	}

	if c.Server.TraceIDBufferSize < 0 {
		add("server.traceIdBufferSize", "must not be negative")
	}
	if c.Server.LocalBacklog < 0 {
		add("server.localBacklog", "must not be negative")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		add("server", "timeouts must not be negative")
	}

	if ip := c.Server.ClientIP; ip != nil {
		switch middleware.IPSourceType(ip.Source) {
		case "", middleware.IPSourceRemoteAddr, middleware.IPSourceXForwardedFor, middleware.IPSourceXRealIP:
		case middleware.IPSourceCustomHeader:
			if ip.CustomHeader == "" {
				add("server.clientIp.customHeader", "required for source %q", ip.Source)
			}
		default:
			add("server.clientIp.source", "unknown source %q", ip.Source)
		}
	}

	if c.Client.BaseURL != "" {
		if u, err := url.Parse(c.Client.BaseURL); err != nil || !u.IsAbs() {
			add("client.baseUrl", "must be an absolute URL")
		}
	}
	if c.Client.RateLimit < 0 {
		add("client.rateLimit", "must not be negative")
	}
	if c.Client.Timeout < 0 {
		add("client.timeout", "must not be negative")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "%v", err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Logger builds the zap logger described by the logging section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Recorder builds the metrics recorder. Disabled metrics yield metrics.Nop.
func (c *Config) Recorder(registry prometheus.Registerer) metrics.Recorder {
	if !c.Metrics.Enabled {
		return metrics.Nop{}
	}
	return promrecorder.NewRecorder(registry, c.Metrics.Namespace, c.Metrics.Subsystem)
}

// Runtime builds a runtime registering the configured encodings in order.
func (c *Config) Runtime(logger *zap.Logger, recorder metrics.Recorder) (*wire.Runtime, error) {
	b := wire.NewBuilder().Logger(logger).Metrics(recorder)
	for _, name := range c.Encodings {
		enc, err := codec.ByName(name)
		if err != nil {
			return nil, err
		}
		b.Encoding(enc)
	}
	return b.Build()
}

// ServerOptions returns the server.Config of the server section.
func (c *Config) ServerOptions(logger *zap.Logger, recorder metrics.Recorder) server.Config {
	sc := server.Config{
		Logger:               logger,
		Metrics:              recorder,
		TraceIDBufferSize:    c.Server.TraceIDBufferSize,
		LocalBacklog:         c.Server.LocalBacklog,
		SlowRequestThreshold: c.Server.SlowRequestThreshold.Duration(),
	}
	if ip := c.Server.ClientIP; ip != nil {
		sc.IPConfig = &middleware.IPConfig{
			Source:       middleware.IPSourceType(ip.Source),
			CustomHeader: ip.CustomHeader,
			TrustProxy:   ip.TrustProxy,
		}
	}
	return sc
}

// ClientOptions returns the client.Config of the client section.
func (c *Config) ClientOptions(rt *wire.Runtime, logger *zap.Logger) client.Config {
	return client.Config{
		BaseURL:   c.Client.BaseURL,
		Timeout:   c.Client.Timeout.Duration(),
		Runtime:   rt,
		Logger:    logger,
		RateLimit: c.Client.RateLimit,
	}
}
