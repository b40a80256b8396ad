package serve

import (
	"log/slog"
	"time"
)

// Option adjusts the Config used by NewServer.
type Option func(*Config)

// WithPort sets the gRPC health port. Port 0 picks a free port; see Server.Port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithListenAddr sets the HTTP listen address, e.g. ":8080" or "127.0.0.1:0".
func WithListenAddr(addr string) Option {
	return func(c *Config) {
		c.ListenAddr = addr
	}
}

// WithHealthEndpoint moves the JSON health report, e.g. to "/healthz".
func WithHealthEndpoint(path string) Option {
	return func(c *Config) {
		c.HealthEndpoint = path
	}
}

// WithHealthInterval sets how often the gRPC serving status is recomputed.
func WithHealthInterval(d time.Duration) Option {
	return func(c *Config) {
		c.HealthInterval = d
	}
}

// WithGracefulShutdown bounds how long shutdown waits for in-flight requests
// and open progress sockets before forcing both servers closed.
//
//	serve.NewServer(engine, registry, serve.WithGracefulShutdown(time.Minute))
func WithGracefulShutdown(timeout time.Duration) Option {
	return func(c *Config) {
		c.GracefulTimeout = timeout
	}
}

// WithTLS serves gRPC over TLS using PEM-encoded files. TLS stays off unless
// both paths are set.
func WithTLS(certFile, keyFile string) Option {
	return func(c *Config) {
		c.TLSCertFile = certFile
		c.TLSKeyFile = keyFile
	}
}

// WithLogger sets the logger for lifecycle events and the progress handler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
