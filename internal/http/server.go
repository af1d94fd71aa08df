// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"kakeibo/internal/aggregate"
	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/taxonomy"
)

// LedgerStore is the part of the Record Store the API drives.
type LedgerStore interface {
	Append(ctx context.Context, t core.Transaction) error
	ListAll(ctx context.Context) ([]core.Transaction, error)
	DeleteAt(ctx context.Context, position int) error
	UndoLastDelete(ctx context.Context) (bool, error)
	UndoAvailable(ctx context.Context) (bool, error)
}

// ReceiptSuggester proposes a transaction from a receipt image.
type ReceiptSuggester interface {
	Suggest(ctx context.Context, img []byte) (core.Transaction, error)
}

type Config struct {
	Addr string
	// Backend names the store in readiness output.
	Backend string

	BudgetTag   string
	BudgetLimit int64

	RateLimitPerMinute int
	MaxUploadBytes     int64
	// TrustedProxies extend the private networks allowed to set X-Forwarded-For.
	TrustedProxies []string
	// SummaryTTL bounds how long a summary may be served from cache when
	// another process writes the same table.
	SummaryTTL time.Duration

	Taxonomy taxonomy.Taxonomy
	Logger   *applog.Logger
}

type Server struct {
	http.Server

	cfg       Config
	store     LedgerStore
	assistant ReceiptSuggester
	logger    *applog.Logger

	summaries *cache.LRUCache[aggregate.Summary]
	// summaryGen counts mutations; a summary computed under an older
	// generation is never cached.
	summaryMu  sync.Mutex
	summaryGen uint64
	flights    singleflight.Group
	janitor    *cache.Janitor
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware

	started time.Time
	now     func() time.Time

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

const maxJSONBody = 1 << 20

// NewServer wires routes and middleware. assistant may be nil, in which case
// receipt suggestions answer 503.
func NewServer(cfg Config, store LedgerStore, assistant ReceiptSuggester) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 8 << 20
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 30 * time.Second
	}
	if len(cfg.Taxonomy.Expense) == 0 && len(cfg.Taxonomy.Income) == 0 {
		cfg.Taxonomy = taxonomy.Default()
	}

	logger := cfg.Logger.WithComponent(applog.ComponentHTTP)
	resolver, err := security.NewClientIPResolver(cfg.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		assistant: assistant,
		logger:    logger,
		summaries: cache.NewLRUCache[aggregate.Summary](32, cfg.SummaryTTL),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		tracer:    trace.NewMiddleware(logger, resolver.ClientIP),
		started:   time.Now(),
		now:       time.Now,
	}
	s.janitor = cache.NewJanitor(s.summaries)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(resolver.ClientIP, ratelimit.MutatingMethods, s.writeRateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusNotFound, "not_found", "no such route", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed", "")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions/{position}", s.handleDeleteTransaction)

		r.Get("/undo", s.handleUndoStatus)
		r.Post("/undo", s.handleUndo)

		r.Route("/summary", func(r chi.Router) {
			r.Get("/", s.handleSummary)
			r.Get("/totals", s.handleTotals)
			r.Get("/tags", s.handleTagTotals)
			r.Get("/budget", s.handleBudget)
			r.Get("/monthly", s.handleMonthly)
		})

		r.Get("/tags", s.handleTags)
		r.Get("/categories", s.handleCategories)
		r.Post("/receipts", s.handleReceipt)
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bg, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.janitor.Run(bg, time.Minute)
	go s.limiter.Run(bg, 5*time.Minute)

	return s, nil
}

// Shutdown stops background cleanup and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidate drops cached summaries after a mutation.
func (s *Server) invalidate() {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	s.summaryGen++
	s.summaries.Purge()
}

func (s *Server) generation() uint64 {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	return s.summaryGen
}

// cacheSummary stores sum only if no mutation happened since gen was read.
func (s *Server) cacheSummary(gen uint64, key string, sum aggregate.Summary) bool {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	if s.summaryGen != gen {
		return false
	}
	s.summaries.Set(key, sum)
	return true
}
