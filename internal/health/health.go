// Package health exposes liveness and readiness over HTTP and gRPC.
//
// /healthz reports that the daemon is up and has finished wiring its
// backends. /readyz additionally runs the registered dependency checks
// (e.g. the Redis session store) so orchestrators stop routing traffic
// while a dependency is down. The optional gRPC server implements
// grpc.health.v1.Health with the same ready flag.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

const checkTimeout = 2 * time.Second

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	ready  atomic.Bool
	server *http.Server

	mu     sync.RWMutex
	checks map[string]CheckFunc
	grpc   *grpchealth.Server
}

// New creates a new health check server.
func New(port int) *Server {
	s := &Server{
		port:   port,
		checks: make(map[string]CheckFunc),
		grpc:   grpchealth.NewServer(),
	}
	s.grpc.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// AddCheck registers a readiness check under name.
func (s *Server) AddCheck(name string, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	s.grpc.SetServingStatus("", servingStatus(ready))
}

func servingStatus(ready bool) healthpb.HealthCheckResponse_ServingStatus {
	if ready {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler returns the HTTP handler serving /healthz and /readyz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, statusResponse{Status: "not_ready"})
			return
		}
		writeStatus(w, http.StatusOK, statusResponse{Status: "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, statusResponse{Status: "not_ready"})
			return
		}
		results, ok := s.runChecks(r.Context())
		if !ok {
			writeStatus(w, http.StatusServiceUnavailable, statusResponse{Status: "degraded", Checks: results})
			return
		}
		writeStatus(w, http.StatusOK, statusResponse{Status: "ok", Checks: results})
	})

	return mux
}

func (s *Server) runChecks(ctx context.Context) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.checks) == 0 {
		return nil, true
	}

	ok := true
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			ok = false
			results[name] = err.Error()
			slog.Warn("readiness check failed", "check", name, "error", err)
			continue
		}
		results[name] = "ok"
	}
	return results, ok
}

func writeStatus(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// GRPCService returns the grpc.health.v1 implementation bound to the ready flag.
func (s *Server) GRPCService() *grpchealth.Server {
	return s.grpc
}

// ListenAndServeGRPC serves grpc.health.v1.Health on port until ctx is cancelled.
func (s *Server) ListenAndServeGRPC(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("grpc health listen on port %d: %w", port, err)
	}
	return s.ServeGRPC(ctx, lis)
}

// ServeGRPC serves grpc.health.v1.Health on lis until ctx is cancelled.
func (s *Server) ServeGRPC(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.GRPCService())

	slog.Info("grpc health server listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		s.grpc.Shutdown()
		srv.GracefulStop()
	}()

	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}
