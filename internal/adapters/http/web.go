package web

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"flashbox/internal/adapters/http/middleware"
	"flashbox/internal/adapters/http/perf"
	"flashbox/internal/adapters/storage/session"
	"flashbox/internal/application/flash"
)

// Deps holds the services the handlers use.
type Deps struct {
	Sessions   session.Store
	Locks      *session.LockTable
	Flash      flash.Config
	Renderer   flash.Renderer
	Catalog    flash.Catalog
	Translator flash.Translator
	Observer   flash.Observer
	Collector  *perf.Collector
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

// Options configures the middleware chain.
type Options struct {
	// CSRFKey must be 32 bytes. When empty a random key is generated and
	// form tokens do not survive a restart.
	CSRFKey        []byte
	Secure         bool
	TrustedOrigins []string
	SessionTTL     time.Duration
	// Limiter defaults to 10 requests per second per IP with a burst of 20.
	Limiter *middleware.RateLimiter
}

// Global dependencies (set by NewMux)
var deps *Deps

// Global logger (set by NewMux)
var logger = zap.NewNop()

// NewMux wires HTTP handlers for the app.
// PRE: d.Sessions and d.Locks are set
// POST: Returns the full handler with middleware applied
func NewMux(d *Deps, opts Options) http.Handler {
	deps = d
	if d.Logger != nil {
		logger = d.Logger
	}
	if deps.Locks == nil {
		deps.Locks = session.NewLockTable(0)
	}

	mux := http.NewServeMux()
	registerRoutes(mux)

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			panic(err)
		}
		logger.Warn("csrf_key_random", zap.String("hint", "set FLASHBOX_CSRF_KEY so form tokens survive restarts"))
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(10, 20, logger)
	}

	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = session.DefaultTTL
	}

	// Apply middleware: Timing -> RateLimit -> Sessions -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, middleware.CSRFOptions{Secure: opts.Secure, TrustedOrigins: opts.TrustedOrigins}),
		middleware.Sessions(middleware.SessionOptions{Secure: opts.Secure, MaxAge: sessionTTL}),
		middleware.RateLimit(limiter),
		middleware.Timing(d.Collector, logger),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("POST /flash", handleFlashForm)
	mux.HandleFunc("POST /flash/catalog", handleFlashCatalog)

	mux.HandleFunc("GET /api/flash", handleAPIRetrieve)
	mux.HandleFunc("POST /api/flash", handleAPIAppend)
	mux.HandleFunc("DELETE /api/flash", handleAPIDelete)
	mux.HandleFunc("POST /api/flash/consume", handleAPIConsume)
	mux.HandleFunc("GET /api/flash/render", handleAPIRender)
	mux.HandleFunc("GET /api/perf", handleAPIPerf)

	mux.HandleFunc("GET /healthz", handleHealth)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
}
