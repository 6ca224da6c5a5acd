package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"edge-proxy/middleware/httplog"
	"edge-proxy/middleware/origin"
	"edge-proxy/middleware/ratelimit"
	"edge-proxy/middleware/ratelimit/application"
	"edge-proxy/middleware/ratelimit/domain"
	"edge-proxy/middleware/ratelimit/infra"
	"edge-proxy/proxy"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	logger, logFile := newLogger(cfg)
	if logFile != nil {
		defer func() { _ = logFile.Close() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gw, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup error: %v", err)
	}
	defer gw.close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.public,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 10*time.Second,
		IdleTimeout:       90 * time.Second,
	}
	servers := []*http.Server{srv}
	if cfg.AdminAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           gw.admin,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	logger.Infof("gateway listening on %s -> %s", cfg.ListenAddr, cfg.UpstreamURL)
	logger.Infof("rate: store=%s limit=%d window=%s clientHeader=%q", cfg.RateStore, cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.ClientIPHeader)
	logger.Infof("rate-stats: enabled=%v bucket=%q ttl=%s trackKeys=%v accessLogDB=%v", cfg.RateStatsEnabled, cfg.RateStatsBucket, cfg.RateStatsTTL, cfg.RateStatsTrackKeys, cfg.AccessLogDatabaseURL != "")
	logger.Infof("concurrency: max=%d acquireTimeout=%s upstreamRPS=%.3f", cfg.ConcurrencyMax, cfg.ConcurrencyTimeout, cfg.UpstreamRPS)
	if cfg.AdminAddr != "" {
		logger.Infof("admin listening on %s (/healthz, /metrics, /stats)", cfg.AdminAddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s: %w", s.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// gateway reúne os handlers prontos e o que precisa ser fechado no fim.
type gateway struct {
	public  http.Handler
	admin   http.Handler
	closers []func()
}

func (g *gateway) close() {
	for i := len(g.closers) - 1; i >= 0; i-- {
		g.closers[i]()
	}
}

func build(ctx context.Context, cfg config, logger *logrus.Logger) (*gateway, error) {
	gw := &gateway{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := proxy.NewMetrics(reg)

	var rdb *redis.Client
	if cfg.RateStore == "redis" || cfg.RateStatsEnabled {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		gw.closers = append(gw.closers, func() { _ = rdb.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err = rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			gw.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	var (
		windowStore domain.WindowStore
		memWindow   *infra.MemoryWindowStore
	)
	switch cfg.RateStore {
	case "redis":
		windowStore = infra.NewRedisWindowStore(rdb, infra.WithStoreTTL(cfg.RateLimitWindow))
	default:
		memWindow = infra.NewMemoryWindowStore(cfg.RateLimitWindow, infra.WithCleanupEvery(cfg.JanitorEvery))
		memWindow.StartJanitor(ctx)
		windowStore = memWindow
	}

	memStats := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.RateStatsTrackKeys))
	stats := infra.TeeStats{memStats}
	if cfg.RateStatsEnabled {
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RateStatsPrefix),
			infra.WithStatsTTL(cfg.RateStatsTTL),
			infra.WithStatsBucket(cfg.RateStatsBucket),
			infra.WithStatsTrackKeys(cfg.RateStatsTrackKeys),
		))
	}
	if cfg.AccessLogDatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.AccessLogDatabaseURL)
		if err != nil {
			gw.close()
			return nil, fmt.Errorf("access log database: %w", err)
		}
		gw.closers = append(gw.closers, pool.Close)

		pg := infra.NewPostgresStatsStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			gw.close()
			return nil, fmt.Errorf("access log schema: %w", err)
		}
		stats = append(stats, pg)
	}

	guard := ratelimit.NewGuard(ratelimit.Options{
		Service: application.Service{
			Store:  windowStore,
			Window: domain.Window{Limit: cfg.RateLimitRequests, Size: cfg.RateLimitWindow},
		},
		Stats:         stats,
		TrustedHeader: cfg.ClientIPHeader,
		Logger:        logger,
	})

	upstream := proxy.NewUpstream(proxy.UpstreamOptions{
		URL:     cfg.UpstreamURL,
		APIKey:  cfg.UpstreamAPIKey,
		Version: cfg.UpstreamVersion,
		Timeout: cfg.UpstreamTimeout,
		RPS:     cfg.UpstreamRPS,
		Burst:   cfg.UpstreamBurst,
	})

	origins := origin.NewGuard(cfg.AllowedOrigins)
	logger.Infof("origins: %v", origins.Origins())

	h := http.Handler(proxy.NewHandler(proxy.Options{
		Origins:      origins,
		Limiter:      guard,
		Upstream:     upstream,
		UpstreamName: cfg.UpstreamName,
		Metrics:      metrics,
		Logger:       logger,
	}))
	concurrency := ratelimit.ConcurrencyOptions{
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
		OnReject:       func(*http.Request) { metrics.ConcurrencyRejected() },
		Skip:           func(r *http.Request) bool { return r.Method == http.MethodOptions },
	}
	var pool *infra.ChanPool
	if cfg.ConcurrencyMax > 0 {
		pool = infra.NewChanPool(cfg.ConcurrencyMax)
		concurrency.Pool = pool
	}
	h = ratelimit.ConcurrencyMiddleware(concurrency)(h)
	h = httplog.Recovery(logger)(h)
	h = httplog.Logging(logger)(h)
	gw.public = otelhttp.NewHandler(h, "edge-proxy")

	gw.admin = adminRouter(reg, memStats, memWindow, pool)
	return gw, nil
}
