package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/identity"
	"bilancio/internal/log"
	"bilancio/internal/middleware/cors"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	"bilancio/internal/store"
)

// TransactionService is the owner-scoped CRUD the handlers call.
type TransactionService interface {
	List(ctx context.Context, owner identity.Key) ([]core.Transaction, error)
	Create(ctx context.Context, owner identity.Key, d core.Draft) (core.Transaction, error)
	Update(ctx context.Context, owner identity.Key, id string, d core.Draft) (core.Transaction, error)
	Delete(ctx context.Context, owner identity.Key, id string) error
}

// SummaryService builds month dashboards.
type SummaryService interface {
	Month(ctx context.Context, owner identity.Key, q services.MonthQuery) (core.MonthView, error)
}

// Dependencies are the collaborators of the server. Store and SummaryCache
// are optional and only feed the readiness and metrics endpoints.
type Dependencies struct {
	Transactions TransactionService
	Summaries    SummaryService
	Identity     identity.Extractor
	Store        store.Pinger
	SummaryCache interface{ Stats() cache.Stats }
	Logger       *log.Logger
}

// Options tune the middleware chain.
type Options struct {
	AllowedOrigins    []string
	IdentityHeader    string
	RequestsPerMinute int
	TrustedProxies    []string
}

type Server struct {
	http.Server

	deps      Dependencies
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	clientIP  *security.ClientIP
	startedAt time.Time
	now       func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies, opts Options) (*Server, error) {
	if deps.Transactions == nil || deps.Summaries == nil || deps.Identity == nil {
		return nil, errors.New("http: transactions, summaries and identity are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if opts.IdentityHeader == "" {
		opts.IdentityHeader = identity.DefaultHeader
	}
	if opts.TrustedProxies == nil {
		opts.TrustedProxies = security.DefaultTrustedProxies
	}

	clientIP, err := security.NewClientIP(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:      deps,
		logger:    deps.Logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		tracer:    trace.NewMiddleware(deps.Logger, clientIP.Extract),
		clientIP:  clientIP,
		startedAt: time.Now(),
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /session", s.handleSession)

	mux.Handle("GET /expenses", s.withOwner(s.handleListTransactions))
	mux.Handle("POST /expenses", s.withOwner(s.handleCreateTransaction))
	mux.Handle("GET /expenses/summary", s.withOwner(s.handleSummary))
	mux.Handle("PUT /expenses/{id}", s.withOwner(s.handleUpdateTransaction))
	mux.Handle("DELETE /expenses/{id}", s.withOwner(s.handleDeleteTransaction))

	limit := s.limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, clientIP.Extract(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodDelete)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = cors.CORS(cors.Config{
		AllowedHosts:   opts.AllowedOrigins,
		AllowedHeaders: []string{opts.IdentityHeader, trace.HeaderRequestID},
	})(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s, nil
}

// Run serves until ctx is done, then shuts down gracefully within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.limiter.Run(cleanupCtx)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// withOwner resolves the owner key and stores it in the request context.
func (s *Server) withOwner(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.deps.Identity.Extract(r)
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Request without owner key",
				log.FieldPath, r.URL.Path,
				log.FieldErrorType, log.ErrorTypeIdentity)
			ErrorFor(err).Write(w)
			return
		}
		next(w, r.WithContext(identity.WithKey(r.Context(), owner)))
	})
}

func ownerFrom(r *http.Request) identity.Key {
	owner, _ := identity.FromContext(r.Context())
	return owner
}
