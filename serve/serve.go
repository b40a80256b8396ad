package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/devdefend/health"
	"github.com/zero-day-ai/devdefend/progress"
)

// ServiceName is the gRPC health service name reported alongside the
// overall ("") status.
const ServiceName = "devdefend"

// Config holds serve configuration.
// It defines the server's network settings, health check configuration,
// graceful shutdown behavior, and optional TLS settings.
type Config struct {
	// Port is the TCP port on which the gRPC health server listens.
	// Default: 50051
	Port int

	// ListenAddr is the HTTP listen address.
	// Default: ":8080"
	ListenAddr string

	// HealthEndpoint is the HTTP path of the JSON health report.
	// Default: /health
	HealthEndpoint string

	// HealthInterval is how often the gRPC serving status is refreshed.
	// Default: 15 seconds
	HealthInterval time.Duration

	// GracefulTimeout is the maximum duration to wait for active requests
	// to complete during graceful shutdown.
	// Default: 30 seconds
	GracefulTimeout time.Duration

	// TLSCertFile is the path to the TLS certificate file.
	// If empty, TLS is disabled.
	TLSCertFile string

	// TLSKeyFile is the path to the TLS private key file.
	// If empty, TLS is disabled.
	TLSKeyFile string

	// Logger receives lifecycle events. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns default serve configuration.
// These defaults are suitable for local development and testing.
func DefaultConfig() *Config {
	return &Config{
		Port:            50051,
		ListenAddr:      ":8080",
		HealthEndpoint:  "/health",
		HealthInterval:  15 * time.Second,
		GracefulTimeout: 30 * time.Second,
	}
}

// HealthSource produces the current health report. *devdefend.Engine
// satisfies it.
type HealthSource interface {
	Health(ctx context.Context) health.Report
}

// Server runs the HTTP and gRPC listeners with shared lifecycle management.
type Server struct {
	config       *Config
	logger       *slog.Logger
	source       HealthSource
	grpcServer   *grpc.Server
	grpcListener net.Listener
	healthServer *grpchealth.Server
	httpServer   *http.Server
	httpListener net.Listener
}

// NewServer creates both listeners and registers the health services and,
// when registry is non-nil, the progress WebSocket endpoint.
func NewServer(source HealthSource, registry *progress.Registry, opts ...Option) (*Server, error) {
	if source == nil {
		return nil, errors.New("health source is required")
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultConfig().HealthInterval
	}

	// Build gRPC server options
	var grpcOpts []grpc.ServerOption

	// Configure TLS if cert and key are provided
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		grpcOpts = append(grpcOpts, grpc.Creds(creds))
	}

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
	}

	httpListener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		grpcListener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	grpcServer := grpc.NewServer(grpcOpts...)
	healthServer := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	s := &Server{
		config:       cfg,
		logger:       cfg.Logger,
		source:       source,
		grpcServer:   grpcServer,
		grpcListener: grpcListener,
		healthServer: healthServer,
		httpListener: httpListener,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.HealthEndpoint, s.handleHealth)
	if registry != nil {
		progress.NewHandler(registry, progress.WithHandlerLogger(cfg.Logger)).Register(mux)
	}
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// GRPCServer returns the underlying gRPC server.
// This allows callers to register additional services.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// HealthServer returns the gRPC health check server.
func (s *Server) HealthServer() *grpchealth.Server {
	return s.healthServer
}

// Serve starts both servers and blocks until shutdown.
// It handles graceful shutdown on SIGINT/SIGTERM signals.
// The context can be used to initiate shutdown programmatically.
func (s *Server) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Either listener returning ends the health loop too.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.syncHealth(gctx)
		ticker := time.NewTicker(s.config.HealthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.syncHealth(gctx)
			}
		}
	})

	s.logger.Info("devdefend server listening",
		"http_addr", s.HTTPAddr(),
		"grpc_port", s.Port(),
	)

	<-gctx.Done()
	if ctx.Err() != nil {
		s.logger.Info("shutting down gracefully")
	}
	s.GracefulStop()

	return g.Wait()
}

// syncHealth maps the health report onto the gRPC serving status.
// Degraded still serves: remediation falls back instead of failing.
func (s *Server) syncHealth(ctx context.Context) {
	report := s.source.Health(ctx)
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if report.Status.IsUnhealthy() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.healthServer.SetServingStatus("", status)
	s.healthServer.SetServingStatus(ServiceName, status)
}

// Stop immediately stops both servers.
// Active requests will be terminated abruptly.
func (s *Server) Stop() {
	s.healthServer.Shutdown()
	s.grpcServer.Stop()
	s.httpServer.Close()

	// Listeners are owned by Serve once it runs; close them if it never did.
	s.grpcListener.Close()
	s.httpListener.Close()
}

// GracefulStop stops accepting new connections and waits for active
// requests to complete within the configured timeout period.
func (s *Server) GracefulStop() {
	// Create a timeout context for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GracefulTimeout)
	defer cancel()

	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete, closing", "error", err)
		s.httpServer.Close()
	}

	// Wait for graceful stop or timeout
	select {
	case <-done:
		s.logger.Info("server stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("graceful shutdown timeout, forcing stop")
		s.grpcServer.Stop()
	}
}

// Port returns the port the gRPC server is listening on.
// This is useful when using port 0 to get an available port.
func (s *Server) Port() int {
	if s.grpcListener != nil {
		if addr, ok := s.grpcListener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.config.Port
}

// HTTPAddr returns the address the HTTP server is listening on.
func (s *Server) HTTPAddr() string {
	if s.httpListener != nil {
		return s.httpListener.Addr().String()
	}
	return s.config.ListenAddr
}
