package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/ai4/internal/api/http"
	"github.com/GriffinCanCode/ai4/internal/api/middleware"
	"github.com/GriffinCanCode/ai4/internal/bridge"
	"github.com/GriffinCanCode/ai4/internal/config"
	"github.com/GriffinCanCode/ai4/internal/ledger"
	"github.com/GriffinCanCode/ai4/internal/logging"
	"github.com/GriffinCanCode/ai4/internal/monitoring"
	"github.com/GriffinCanCode/ai4/internal/registry"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	bridge  *bridge.Bridge
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a bridge server over the registry and ledger in the
// configured base directory.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	if err := layout.Ensure(); err != nil {
		return nil, err
	}

	logger.Info("Initializing ai4 bridge server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("registry", layout.Registry()),
		zap.String("ledger", layout.Ledger()),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	reg, err := registry.NewManager(layout.Home, registry.WithLogger(logger.Component("registry")))
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	led, err := ledger.New(layout.Home, ledger.WithLogger(logger.Component("ledger")))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	b := bridge.New(reg, led,
		bridge.WithLogger(logger.Component("bridge")),
		bridge.WithMetrics(metrics))

	if stats, err := reg.Stats(); err == nil {
		metrics.SetRegistryModels(stats.TotalModels)
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.BodyLimit(middleware.MaxBodySize))
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	if cfg.RateLimit.GlobalRPS > 0 {
		logger.Info("Global rate limit enabled", zap.Int("rps", cfg.RateLimit.GlobalRPS))
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.GlobalRPS,
			Burst:             cfg.RateLimit.GlobalRPS,
		}))
	}

	handlers := apihttp.NewHandlers(b, metrics, apihttp.Defaults{
		Payer: cfg.Billing.Payer,
		Cost:  cfg.Billing.Cost,
	})
	handlers.Register(router)

	return &Server{
		router:  router,
		bridge:  b,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Bridge returns the bridge the server fronts
func (s *Server) Bridge() *bridge.Bridge {
	return s.bridge
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting ai4 bridge", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down ai4 bridge")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
