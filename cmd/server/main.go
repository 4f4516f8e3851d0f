package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"flashbox/internal/adapters/catalog"
	web "flashbox/internal/adapters/http"
	"flashbox/internal/adapters/http/middleware"
	"flashbox/internal/adapters/http/perf"
	"flashbox/internal/adapters/metrics"
	"flashbox/internal/adapters/render"
	"flashbox/internal/adapters/storage/session"
	"flashbox/internal/application/flash"
	"flashbox/internal/application/orchestrators"
	"flashbox/internal/config"
	"flashbox/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// configPath is the YAML file given by -config or FLASHBOX_CONFIG.
type configPath string

func main() {
	path := flag.String("config", os.Getenv("FLASHBOX_CONFIG"), "path to a YAML config file")
	flag.Parse()

	app := fx.New(
		fx.Supply(configPath(*path)),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideCollector,
			provideSessionStore,
			provideRenderer,
			provideCatalog,
			provideRegistry,
			provideObserver,
			provideLimiter,
			provideHandler,
			provideServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerLifecycle),
	)
	app.Run()
}

func provideConfig(path configPath) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return config.Load(string(path))
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("version", version)), nil
}

func provideCollector(cfg *config.Config) *perf.Collector {
	return perf.NewCollector(cfg.Perf.RingSize)
}

func provideSessionStore(lc fx.Lifecycle, cfg *config.Config, collector *perf.Collector, logger *zap.Logger) (session.Store, error) {
	store, err := session.New(cfg.Session, collector, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("session_store_opened",
		zap.String("backend", cfg.Session.Backend),
		zap.String("path", cfg.Session.Path),
		zap.Duration("ttl", cfg.Session.TTL),
	)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func provideRenderer(cfg *config.Config) (*render.HTMLRenderer, error) {
	return render.New(cfg.Templates.Dir)
}

func provideCatalog(cfg *config.Config, logger *zap.Logger) (flash.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.MapCatalog{}, nil
	}
	c, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog_loaded", zap.String("path", cfg.Catalog.Path), zap.Int("keys", len(c.Keys())))
	return c, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideObserver(reg *prometheus.Registry, collector *perf.Collector) (flash.Observer, error) {
	prom, err := metrics.NewPrometheusObserver(reg)
	if err != nil {
		return nil, err
	}
	return flash.NewMultiObserver(prom, collector), nil
}

func provideLimiter(cfg *config.Config, logger *zap.Logger) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
}

type handlerParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Sessions  session.Store
	Renderer  *render.HTMLRenderer
	Catalog   flash.Catalog
	Observer  flash.Observer
	Collector *perf.Collector
	Registry  *prometheus.Registry
	Limiter   *middleware.RateLimiter
}

func provideHandler(p handlerParams) (http.Handler, error) {
	key, err := p.Config.CSRFKeyBytes()
	if err != nil {
		return nil, err
	}
	return web.NewMux(&web.Deps{
		Sessions:   p.Sessions,
		Locks:      session.NewLockTable(0),
		Flash:      p.Config.Flash,
		Renderer:   p.Renderer,
		Catalog:    p.Catalog,
		Translator: catalog.Identity,
		Observer:   p.Observer,
		Collector:  p.Collector,
		Gatherer:   p.Registry,
		Logger:     p.Logger,
	}, web.Options{
		CSRFKey:        key,
		Secure:         p.Config.IsProduction(),
		TrustedOrigins: p.Config.Server.TrustedOrigins,
		SessionTTL:     p.Config.Session.TTL,
		Limiter:        p.Limiter,
	}), nil
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, srv *http.Server, store session.Store, limiter *middleware.RateLimiter, logger *zap.Logger) {
	bg, cancel := context.WithCancel(context.Background())
	var stopSweeper func()

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}

			go limiter.Run(bg)

			if cfg.Sweep.Enabled {
				stopSweeper, err = orchestrators.StartSweeper(bg, cfg.Sweep.Cron, orchestrators.SweepSessionsDeps{
					Store:  store,
					Logger: logger,
				})
				if err != nil {
					cancel()
					ln.Close()
					return err
				}
			}

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http_server_error", zap.Error(err))
				}
			}()
			logger.Info("server_started", zap.String("addr", ln.Addr().String()), zap.String("env", cfg.Env))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, done := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer done()
			err := srv.Shutdown(shutdownCtx)

			if stopSweeper != nil {
				stopSweeper()
			}
			cancel()
			logger.Info("server_stopped")
			_ = logger.Sync()
			return err
		},
	})
}
