package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/gateway"
	"github.com/GillJordan/Home-expense/internal/log"
	"github.com/GillJordan/Home-expense/internal/middleware/ratelimit"
	"github.com/GillJordan/Home-expense/internal/middleware/security"
	"github.com/GillJordan/Home-expense/internal/middleware/trace"
)

const (
	// LedgerPath is the single query-parameter driven endpoint.
	LedgerPath = "/api/ledger"
	// LegacyLedgerPath keeps the browser form's original URL working.
	LegacyLedgerPath = "/.netlify/functions/addExpense"
)

// Ledger is the gateway behaviour the HTTP surface exposes.
type Ledger interface {
	Append(ctx context.Context, sub core.Submission) (core.Row, error)
	ListAll(ctx context.Context, year int) ([]core.Row, error)
	ListByDay(ctx context.Context, year int, date string) ([]core.Row, error)
	Search(ctx context.Context, year int, q core.Query) (core.SearchResult, error)
	Suggestions(ctx context.Context) (core.Suggestions, error)
	Diagnostics(ctx context.Context) (gateway.Diagnostics, error)
}

// Options tunes NewServer. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	Now                func() time.Time
	ReadyTimeout       time.Duration
}

type Server struct {
	http.Server
	ledger       Ledger
	logger       *log.Logger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	now          func() time.Time
	readyTimeout time.Duration
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()
	s := &Server{
		ledger:       ledger,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     detector,
		tracer:       trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		now:          opts.Now,
		readyTimeout: opts.ReadyTimeout,
	}

	api := chain(http.HandlerFunc(s.handleLedger),
		s.tracer.Middleware,
		security.Recovery(logger, func(w http.ResponseWriter, _ *http.Request) {
			InternalServerError("internal server error").Write(w)
		}),
		log.Middleware(logger),
		log.RequestIDMiddleware(trace.FromRequest),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		detector.Middleware(opts.Logger),
		security.CORS(http.MethodGet, http.MethodPost),
		s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit, http.MethodPost),
	)

	mux := http.NewServeMux()
	mux.Handle(LedgerPath, api)
	mux.Handle(LegacyLedgerPath, api)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// chain wraps h so the first middleware is the outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method)
	TooManyRequestsError().Header("Retry-After", "60").Write(w)
}

// Shutdown stops background loops and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady succeeds once the ledger store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()
	if _, err := s.ledger.Diagnostics(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.NewFields().WithError(err).ToSlice()...)
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
