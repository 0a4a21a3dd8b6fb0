// Package http serves the dashboard JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"revdash/internal/cache"
	"revdash/internal/core"
	"revdash/internal/log"
	"revdash/internal/middleware/ratelimit"
	"revdash/internal/middleware/security"
	"revdash/internal/middleware/trace"
	"revdash/internal/notify"
	"revdash/internal/services"
)

// SyncService is what the handlers need from the connection manager.
type SyncService interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Refresh(ctx context.Context) (*core.Snapshot, error)
	Snapshot() (*core.Snapshot, error)
	Status() services.Status
}

var _ SyncService = (*services.SyncManager)(nil)

// Options configures NewServer. Sync and Notifications are required.
type Options struct {
	Addr           string
	Sync           SyncService
	Notifications  *notify.Center
	Catalog        core.Catalog
	BankExclusions []string
	Location       *time.Location
	Logger         *log.Logger
	// Caches, when set, sweeps the dashboard cache.
	Caches    *cache.Manager
	RateLimit ratelimit.Config
	// Now overrides the clock used for date filters. Used by tests.
	Now func() time.Time
}

type Server struct {
	http.Server

	sync           SyncService
	notifications  *notify.Center
	catalog        core.Catalog
	bankExclusions []string
	loc            *time.Location
	logger         *log.Logger
	now            func() time.Time

	dashboardCache *cache.LRUCache[DashboardResponse]
	rateLimiter    *ratelimit.Limiter
	detector       *security.Detector
	tracer         *trace.Middleware
	metrics        appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	startedAt   time.Time
	cacheHits   int64
	cacheMisses int64
	refreshes   int64
	exports     int64
}

const (
	dashboardCacheSize = 64
	dashboardCacheTTL  = time.Minute
	syncTimeout        = 30 * time.Second
)

// NewServer wires routes and middleware and returns a server ready for
// ListenAndServe.
func NewServer(opts Options) *Server {
	if opts.Catalog == nil {
		opts.Catalog = core.DefaultCatalog
	}
	if opts.BankExclusions == nil {
		opts.BankExclusions = core.DefaultBankExclusions
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RateLimit.RequestsPerMinute == 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		sync:           opts.Sync,
		notifications:  opts.Notifications,
		catalog:        opts.Catalog,
		bankExclusions: opts.BankExclusions,
		loc:            opts.Location,
		logger:         logger,
		now:            opts.Now,
		dashboardCache: cache.NewLRUCache[DashboardResponse](dashboardCacheSize, dashboardCacheTTL),
		rateLimiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:       detector,
		tracer:         trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		metrics:        appMetrics{startedAt: time.Now()},
	}
	if opts.Caches != nil {
		opts.Caches.Register(s.dashboardCache)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/departments", s.handleDepartments)
	mux.HandleFunc("GET /api/bank-accounts", s.handleBankAccounts)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExportXLSX)

	mux.HandleFunc("GET /api/notifications", s.handleListNotifications)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.handleDismissNotification)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = limited(handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) recordCache(hit bool) {
	if hit {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
	} else {
		atomic.AddInt64(&s.metrics.cacheMisses, 1)
	}
}
