package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	pingTimeout       = 2 * time.Second
	apiPrefix         = "/api"

	reasonSource   = "source"
	reasonSnapshot = "snapshot"
)

// Pinger checks the source store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyFunc reports whether a snapshot is available to serve reads.
type ReadyFunc func() bool

type Server struct {
	source Pinger
	ready  ReadyFunc
	api    http.Handler
	port   int
	logger *zerolog.Logger
}

// NewServer creates the HTTP server. api is mounted under /api/ when not nil.
func NewServer(source Pinger, ready ReadyFunc, api http.Handler, port int, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Server{
		source: source,
		ready:  ready,
		api:    api,
		port:   port,
		logger: logger,
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	if s.api != nil {
		mux.Handle(apiPrefix+"/", http.StripPrefix(apiPrefix, s.api))
	}

	return mux
}

// handleReady requires a reachable source store and a published snapshot.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := s.source.Ping(ctx); err != nil {
		ReadinessFailures.WithLabelValues(reasonSource).Inc()
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "DB error: %v", err)

		return
	}

	if s.ready != nil && !s.ready() {
		ReadinessFailures.WithLabelValues(reasonSnapshot).Inc()
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprint(w, "no snapshot yet")

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("HTTP server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}
