package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"money/internal/cache"
	"money/internal/controller"
	"money/internal/log"
	"money/internal/middleware/ratelimit"
	"money/internal/middleware/security"
	"money/internal/middleware/trace"
	"money/internal/render"
	appweb "money/web"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the server settings taken from the application config.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	CacheSize          int
	CacheTTL           time.Duration
}

type appMetrics struct {
	uptime              time.Time
	transactionsAdded   int64
	transactionsRemoved int64
}

// Server serves the single-session web UI. mu serializes every access to
// the controller.
type Server struct {
	http.Server

	mu       sync.Mutex
	ctrl     *controller.Controller
	renderer *render.Renderer
	pinger   Pinger
	logger   *log.Logger

	listCache        *cache.LRUCache[template.HTML]
	cacheManager     *cache.Manager
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, ctrl *controller.Controller, renderer *render.Renderer, pinger Pinger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	rl := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		rl.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		ctrl:             ctrl,
		renderer:         renderer,
		pinger:           pinger,
		logger:           logger.WithComponent(log.ComponentHTTP),
		listCache:        cache.NewLRUCache[template.HTML](cfg.CacheSize, cfg.CacheTTL),
		cacheManager:     cache.NewManager(logger),
		rateLimiter:      ratelimit.NewLimiter(rl),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)
	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /modal/cancel", s.handleCancelModal)
	mux.HandleFunc("POST /modal/{kind}", s.handleOpenModal)
	mux.HandleFunc("POST /transactions", s.handleSubmit)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /filter/{filter}", s.handleFilter)
	mux.HandleFunc("POST /theme", s.handleTheme)
	mux.HandleFunc("POST /save", s.handleSave)
	mux.HandleFunc("POST /load", s.handleLoad)

	// UI partials
	mux.HandleFunc("GET /ui/balance", s.handleBalancePartial)
	mux.HandleFunc("GET /ui/transactions", s.handleTransactionsPartial)
	mux.HandleFunc("GET /ui/notification", s.handleNotificationPartial)

	mux.HandleFunc("GET /api/stats", s.handleStats)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(handler)
	handler = s.securityDetector.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown stops background goroutines and drains the HTTP server. It is
// safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// transactionList returns the rendered list for the current revision and
// filter, from cache when possible. Callers hold s.mu.
func (s *Server) transactionList(ctx context.Context, v controller.View) (template.HTML, error) {
	key := listCacheKey(v.Revision, v.Filter)
	if html, ok := s.listCache.Get(key); ok {
		return html, nil
	}
	html, err := s.renderer.RenderTransactionList(v.Transactions, v.Filter)
	if err != nil {
		return "", err
	}
	s.listCache.Set(key, html)
	log.FromContext(ctx).WithComponent(log.ComponentCache).DebugContext(ctx, "Transaction list cached",
		"cache_key", key)
	return html, nil
}

func (s *Server) countAdded()   { atomic.AddInt64(&s.appMetrics.transactionsAdded, 1) }
func (s *Server) countRemoved() { atomic.AddInt64(&s.appMetrics.transactionsRemoved, 1) }
