package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := newLogger(cfg.logLevel, cfg.logFormat)
	slog.SetDefault(logger)

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	policy, err := domain.NewPolicy(cfg.policy)
	if err != nil {
		log.Fatalf("security policy error: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", slog.String("request_id", edge.RequestIDFromContext(r.Context())), slog.Any("error", err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.needsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	var store domain.WindowStore
	switch cfg.rateStore {
	case "redis":
		store = infra.NewRedisWindowStore(rdb, cfg.rateWindow, int64(cfg.rateMax))
	default:
		mem := infra.NewMemoryWindowStore(cfg.rateWindow, int64(cfg.rateMax),
			infra.WithMaxEntries(cfg.storeMaxEntries),
			infra.WithCleanupEvery(cfg.storeCleanupEvery),
		)
		mem.StartJanitor(ctx)
		store = mem
	}

	var stats infra.FanoutStats
	if cfg.metricsAddr != "" {
		stats = append(stats, infra.NewPrometheusStats(prometheus.DefaultRegisterer))
	}
	if cfg.rateStatsEnabled {
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackIdentities(cfg.rateStatsTrackIDs),
		))
	}
	var statsStore domain.StatsStore
	if len(stats) > 0 {
		statsStore = stats
	}

	gate := application.Gate{
		Policy:            policy,
		Store:             store,
		Prefixes:          cfg.pathPrefixes,
		Order:             cfg.checkOrder,
		RateLimitMessage:  cfg.rateMessage,
		AllowEmptyOrigin:  cfg.allowEmptyOrigin,
		ExemptAllowlisted: cfg.exemptAllowlist,
	}

	h := http.Handler(proxy)
	var slots domain.SlotPool
	if cfg.maxInFlight > 0 {
		slots = infra.NewSemaphorePool(cfg.maxInFlight)
	}
	h = edge.APILimits(edge.LimitOptions{
		MaxBodyBytes: cfg.maxBodyBytes,
		Timeout:      cfg.requestTimeout,
		Prefixes:     cfg.pathPrefixes,
		Slots:        slots,
		SlotWait:     cfg.inFlightWait,

		NoTimeoutPrefixes: cfg.noTimeoutPrefixes,
	})(h)
	h = edge.Middleware(edge.Options{
		Gate:                gate,
		Stats:               statsStore,
		ClientIPHeader:      cfg.clientIPHeader,
		TrustXForwardedFor:  cfg.trustXFF,
		AddRateLimitHeaders: cfg.addHeaders,
		CORS:                edge.CORSOptions{AllowCredentials: true},
		Logger:              logger,
	})(h)
	h = edge.RequestID(h)
	h = edge.SecurityHeaders(policy)(h)

	srv := newServer(cfg, h)

	var metricsSrv *http.Server
	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", slog.Any("error", err))
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
	}()

	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, target)
	log.Printf("gate: origins=%v prefixes=%v order=%s clientIPHeader=%q trustXFF=%v", cfg.policy.AllowedOrigins, cfg.pathPrefixes, cfg.checkOrder, cfg.clientIPHeader, cfg.trustXFF)
	log.Printf("rate: store=%s window=%s max=%d blocked=%d allowlist=%d maxInFlight=%d", cfg.rateStore, cfg.rateWindow, cfg.rateMax, len(cfg.policy.BlockedIPs), len(cfg.policy.AllowlistIPs), cfg.maxInFlight)
	log.Printf("rate-stats: enabled=%v bucket=%q ttl=%s trackKeys=%v metrics=%q", cfg.rateStatsEnabled, cfg.rateStatsBucket, cfg.rateStatsTTL, cfg.rateStatsTrackIDs, cfg.metricsAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// newServer só define WriteTimeout quando todo handler tem timeout próprio;
// sem isso, respostas longas ou streaming seriam cortadas pelo servidor.
func newServer(cfg config, h http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	if cfg.requestTimeout > 0 && len(cfg.noTimeoutPrefixes) == 0 {
		srv.WriteTimeout = cfg.requestTimeout + 5*time.Second
	}
	return srv
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
