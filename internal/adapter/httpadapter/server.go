package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

// TimetableService builds the timetable for a window.
// It is implemented by pipeline.Reconciler.
type TimetableService interface {
	Reconcile(ctx context.Context, w domain.Window, order domain.Order) (domain.Timetable, error)
}

// Options configure the timetable endpoint.
type Options struct {
	RequestTimeout     time.Duration
	DefaultWindowHours int
	AllowedOrigins     []string
	Clock              clockwork.Clock
}

// Server exposes the timetable API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        TimetableService
	opts       Options
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /api/v1/timetable routes.
func NewServer(addr string, svc TimetableService, ready sharedobs.ReadinessChecker, opts Options, logger *slog.Logger) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.DefaultWindowHours <= 0 {
		opts.DefaultWindowHours = 24
	}

	r := chi.NewRouter()
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	writeTimeout := 10 * time.Second
	if opts.RequestTimeout+5*time.Second > writeTimeout {
		writeTimeout = opts.RequestTimeout + 5*time.Second
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		opts:   opts,
		logger: logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/timetable", s.handleTimetable)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleTimetable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win, err := parseWindow(q, s.opts.Clock.Now(), s.opts.DefaultWindowHours)
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_window", Message: err.Error()})
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	tt, err := s.svc.Reconcile(ctx, win, domain.ParseOrder(q.Get("order")))
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, tt)
	case errors.Is(err, domain.ErrInvalidWindow):
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_window", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("timetable request timed out", "from", win.Start, "to", win.End)
		sharedobs.WriteJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "timeout"})
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
	default:
		s.logger.Error("timetable request failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal"})
	}
}
