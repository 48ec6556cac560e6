package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"contractcache/internal/cache"
	"contractcache/internal/config"
	"contractcache/internal/metrics"
	"contractcache/internal/proxy"
)

// HealthBody is returned by GET /health
type HealthBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Server represents the main server
type Server struct {
	cfg      *config.Config
	handler  http.Handler
	store    cache.Store
	upstream io.Closer
	limiter  *IPLimiter
	logger   zerolog.Logger
	now      func() time.Time

	httpServer *http.Server
	listener   net.Listener
	stop       chan struct{}
	wg         sync.WaitGroup
}

// New creates a new Server. The server owns store and upstream and closes
// them on Stop.
func New(cfg *config.Config, orchestrator *proxy.Orchestrator, store cache.Store, upstream io.Closer,
	recorder *metrics.Recorder, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		upstream: upstream,
		logger:   logger.With().Str("component", "server").Logger(),
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	proxy.NewHandler(orchestrator).Register(mux)
	mux.HandleFunc("GET /health", s.handleHealth)
	if cfg.MetricsEnabled && recorder != nil {
		mux.Handle("GET /metrics", recorder.Handler())
	}

	mws := []middleware{withRequestID(logger), withAccessLog}
	if cfg.IsCORSEnabled() {
		mws = append(mws, withCORS(cfg.AllowedOrigins))
		s.logger.Info().Strs("origins", cfg.AllowedOrigins).Msg("CORS enabled")
	}
	if cfg.IsRateLimitEnabled() {
		s.limiter = NewIPLimiter(cfg.RateLimit, cfg.RateBurst)
		mws = append(mws, withRateLimit(s.limiter))
		s.logger.Info().
			Float64("rate", cfg.RateLimit).
			Int("burst", cfg.RateBurst).
			Msg("rate limiting enabled")
	}
	s.handler = chain(mux, mws...)

	return s
}

// Handler returns the full HTTP handler including middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Msg("starting HTTP server")
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	if s.limiter != nil {
		s.wg.Add(1)
		go s.limiterGCLoop()
	}

	s.logger.Info().
		Str("endpoint", fmt.Sprintf("http://%s/contract/{address}/{function}", ln.Addr())).
		Msg("endpoint available")

	return nil
}

// Addr returns the bound address once the server is started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr()
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server and releases the store and upstream
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	var httpErr error
	if s.httpServer != nil {
		httpErr = s.httpServer.Shutdown(ctx)
	}

	close(s.stop)
	s.wg.Wait()

	if s.upstream != nil {
		if err := s.upstream.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close upstream client")
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close cache store")
		}
	}

	if httpErr != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", httpErr)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	proxy.WriteJSON(w, http.StatusOK, HealthBody{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) limiterGCLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(visitorGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.limiter.GC(visitorIdleTimeout); n > 0 {
				s.logger.Debug().Int("removed", n).Msg("forgot idle rate limit clients")
			}
		}
	}
}
