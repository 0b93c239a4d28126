package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"envelope/internal/cache"
	"envelope/internal/core"
	"envelope/internal/middleware/ratelimit"
	"envelope/internal/middleware/security"
	"envelope/internal/middleware/trace"
	"envelope/internal/services"
)

// Options tunes the server's middleware and caching. Zero values fall back
// to the package defaults.
type Options struct {
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheMaxSize       int
}

// Server exposes the budgeting API over HTTP. Month availability and summary
// responses are cached per user and dropped whenever that user writes.
type Server struct {
	http.Server

	budget *services.BudgetService
	ledger *services.LedgerService

	limiter      *ratelimit.Limiter
	resolver     *security.IPResolver
	cacheMgr     *cache.Manager
	budgetCache  *cache.LRUCache[budgetResponse]
	summaryCache *cache.LRUCache[summaryResponse]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, budget *services.BudgetService, ledger *services.LedgerService, opts Options) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.CacheMaxSize <= 0 {
		opts.CacheMaxSize = 1024
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		budget:       budget,
		ledger:       ledger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		resolver:     security.NewIPResolver(),
		cacheMgr:     cache.NewManager(),
		budgetCache:  cache.NewLRUCache[budgetResponse](opts.CacheMaxSize, opts.CacheTTL),
		summaryCache: cache.NewLRUCache[summaryResponse](opts.CacheMaxSize, opts.CacheTTL),
	}

	s.cacheMgr.Register(s.budgetCache)
	s.cacheMgr.Register(s.summaryCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/budget", s.withUser(s.handleGetBudget))
	mux.HandleFunc("GET /api/budget/summary", s.withUser(s.handleGetSummary))
	mux.HandleFunc("PUT /api/budget/assign", s.withUser(s.handleAssign))

	mux.HandleFunc("GET /api/groups", s.withUser(s.handleListGroups))
	mux.HandleFunc("POST /api/groups", s.withUser(s.handleCreateGroup))
	mux.HandleFunc("DELETE /api/groups/{id}", s.withUser(s.handleDeleteGroup))

	mux.HandleFunc("GET /api/categories", s.withUser(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withUser(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withUser(s.handleDeleteCategory))
	mux.HandleFunc("PUT /api/categories/{id}/rollover", s.withUser(s.handleSetRollover))

	mux.HandleFunc("GET /api/accounts", s.withUser(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withUser(s.handleCreateAccount))

	mux.HandleFunc("GET /api/transactions", s.withUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withUser(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withUser(s.handleDeleteTransaction))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.resolver.ClientIP)
	limited := s.limiter.Middleware(s.resolver.ClientIP, nil)

	s.Handler = headers.Middleware(tracer.Middleware(limited(mux)))

	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheMgr.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) cacheKey(userID int64, m core.Month) string {
	return s.userPrefix(userID) + string(m)
}

func (s *Server) userPrefix(userID int64) string {
	return "u" + strconv.FormatInt(userID, 10) + "|"
}

// invalidateUser drops every cached month for the user. Any write can move
// carryovers in far later months, so per-month invalidation is not enough.
func (s *Server) invalidateUser(userID int64) {
	prefix := s.userPrefix(userID)
	s.budgetCache.DeletePrefix(prefix)
	s.summaryCache.DeletePrefix(prefix)
}
