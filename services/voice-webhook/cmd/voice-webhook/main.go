package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dropflyai/voicefly/libs/config"
	"github.com/dropflyai/voicefly/libs/db"
	"github.com/dropflyai/voicefly/libs/httpx"
	"github.com/dropflyai/voicefly/libs/kafkax"
	otelx "github.com/dropflyai/voicefly/libs/otel"
	"github.com/dropflyai/voicefly/libs/runtime"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/automation"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/contextcache"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/handlers"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/routing"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/storage"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/toolcalls"
)

const version = "1.2.0"

func main() {
	service := config.String("SERVICE_NAME", "voice-webhook")
	port, err := config.Port("PORT", "3001")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)

	cacheTTL := contextcache.DefaultTTL
	if v, err := strconv.Atoi(config.String("CONTEXT_CACHE_TTL_SECONDS", "300")); err == nil && v > 0 {
		cacheTTL = time.Duration(v) * time.Second
	}

	var rdb *redis.Client
	var cache contextcache.Cache
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		cache = contextcache.NewRedisCache(rdb, cacheTTL, config.String("CONTEXT_CACHE_PREFIX", "bizctx"), logger)
		logger.Info("business context cache enabled (redis)", "ttl", cacheTTL, "redis_addr", addr)
	} else {
		cache = contextcache.NewMemoryCache(cacheTTL)
		logger.Info("business context cache enabled (in-memory)", "ttl", cacheTTL)
	}
	contexts := contextcache.NewLoader(cache, repo, logger)

	policy, err := routing.ParsePolicy(config.String("UNRESOLVED_PHONE_POLICY", "most_recent"))
	if err != nil {
		logger.Error("invalid unresolved phone policy", "err", err)
		panic(err)
	}
	resolver := routing.NewResolver(repo, routing.Config{
		DemoDigits:         config.String("DEMO_PHONE_DIGITS", ""),
		DemoBusinessID:     config.String("DEMO_BUSINESS_ID", ""),
		Unresolved:         policy,
		FallbackBusinessID: config.String("FALLBACK_BUSINESS_ID", ""),
	}, logger)

	var sinks []automation.Sink
	if url := strings.TrimSpace(config.String("N8N_WEBHOOK_URL", "")); url != "" {
		sinks = append(sinks, automation.NewWebhookSink(url))
		logger.Info("automation webhook sink enabled")
	}
	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	if strings.TrimSpace(kafkaBrokers) != "" {
		kafkaSink := automation.NewKafkaSink(kafkaBrokers, config.String("AUTOMATION_TOPIC", "voicefly.appointment.booked.v1"))
		defer func() { _ = kafkaSink.Close() }()
		sinks = append(sinks, kafkaSink)
		logger.Info("automation kafka sink enabled", "brokers", kafkaBrokers)
	}
	var sink automation.Sink
	switch len(sinks) {
	case 0:
		sink = automation.NoopSink{}
		logger.Warn("automation disabled (no sinks configured)")
	case 1:
		sink = sinks[0]
	default:
		sink = automation.NewMultiSink(logger, sinks...)
	}

	ops := toolcalls.NewOperations(repo, sink, logger)
	dispatcher := toolcalls.NewDispatcher(ops, contexts, logger)
	webhookHandler := handlers.NewWebhookHandler(resolver, dispatcher, contexts, logger, version)

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if strings.TrimSpace(kafkaBrokers) != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/webhook/vapi", webhookHandler.HandleVapi)
	mux.HandleFunc("/health", webhookHandler.HandleHealth)

	bodyLimit := int64(1 << 20) // 1MB
	if v, err := strconv.Atoi(config.String("REQUEST_BODY_LIMIT_BYTES", "1048576")); err == nil && v > 0 {
		bodyLimit = int64(v)
	}
	requestTimeout := 30 * time.Second
	if v, err := strconv.Atoi(config.String("REQUEST_TIMEOUT_SECONDS", "30")); err == nil && v > 0 {
		requestTimeout = time.Duration(v) * time.Second
	}

	limitPerMinute := 120
	if v, err := strconv.Atoi(config.String("RATE_LIMIT_PER_MINUTE", "120")); err == nil && v > 0 {
		limitPerMinute = v
	}
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "*")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "voice-webhook")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
