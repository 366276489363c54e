package status

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/jobrunner/component"
	"github.com/kbukum/jobrunner/config"
	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/pipeline"
)

// HealthChecker returns the health of the process components.
type HealthChecker func(ctx context.Context) []component.Health

// Server is the status HTTP server of one runner.
type Server struct {
	cfg     config.StatusConfig
	service string
	runner  *pipeline.Runner
	checker HealthChecker
	engine  *gin.Engine
	log     *logger.Logger
	started time.Time

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// New creates a server for runner. checker may be nil, in which case /health
// reports the runner component only.
func New(cfg config.StatusConfig, service string, runner *pipeline.Runner, checker HealthChecker, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Get("status")
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if checker == nil {
		rc := pipeline.NewComponent(runner)
		checker = func(ctx context.Context) []component.Health {
			return []component.Health{rc.Health(ctx)}
		}
	}

	s := &Server{
		cfg:     cfg,
		service: service,
		runner:  runner,
		checker: checker,
		engine:  gin.New(),
		log:     log,
		started: time.Now(),
		addr:    cfg.Addr(),
	}
	s.engine.Use(recovery(log), requestID(), requestLogger(log))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/performance", s.performance)
	s.engine.GET("/jobs", s.listJobs)
	s.engine.GET("/jobs/:name", s.getJob)
	s.engine.GET("/graph", s.graph)
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the port and serves in the background. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("status server failed to bind %s: %w", s.cfg.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("status server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting at most the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.log.Info("status server stopped")
	return nil
}

// Listening reports whether the server is serving.
func (s *Server) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpServer != nil
}
