package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/semref/wdsearch/internal/config"
	dbRedis "github.com/semref/wdsearch/internal/db/redis"
	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/catalog"
	logpkg "github.com/semref/wdsearch/internal/logger"
	"github.com/semref/wdsearch/internal/metrics"
	"github.com/semref/wdsearch/internal/repository/embcache"
	feedbackrepo "github.com/semref/wdsearch/internal/repository/feedback"
	"github.com/semref/wdsearch/internal/repository/partition"
	chiTransport "github.com/semref/wdsearch/internal/transport/chi"
	"github.com/semref/wdsearch/internal/transport/jina"
	"github.com/semref/wdsearch/internal/transport/mint"
	openaiEmb "github.com/semref/wdsearch/internal/transport/openai"
	feedbackuc "github.com/semref/wdsearch/internal/usecase/feedback"
	healthuc "github.com/semref/wdsearch/internal/usecase/health"
	queryuc "github.com/semref/wdsearch/internal/usecase/query"
	"github.com/semref/wdsearch/internal/version"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting wdsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Strings("native_langs", cfg.Languages.Native),
		zap.Bool("gated", cfg.Auth.APISecret != ""),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	cat, err := catalog.New(cfg.Languages.Native, cfg.Languages.Fallback, cfg.Languages.Pivot, cfg.Embedding.Dimensions)
	if err != nil {
		logger.Fatal("Invalid language catalog", zap.Error(err))
	}

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	partitions := partition.New(store, cfg.Search.KeyPrefix)

	// Refuse to serve if any partition index disagrees with the embedding
	// model's output width: every similarity score would be garbage.
	if err := partitions.VerifyDimensions(ctx, cat.Native(), cat.Dimensions()); err != nil {
		logger.Fatal("Partition dimension check failed", zap.Error(err))
	}
	logger.Info("Partition indexes verified",
		zap.Int("partitions", len(cat.Native())),
		zap.Int("dimensions", cat.Dimensions()),
	)

	embedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", cfg.Embedding.CacheTTLSec > 0),
	)

	translator := mint.NewTranslator(&mint.Config{
		BaseURL: cfg.Translation.BaseURL,
		Timeout: time.Duration(cfg.Translation.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	querySvc := queryuc.New(cat, embedder, translator, partitions).
		WithLimits(cfg.Search.DefaultTopK, cfg.Search.MaxTopK).
		WithPartitionTimeout(time.Duration(cfg.Search.PartitionTimeoutMS) * time.Millisecond)

	if cfg.Rerank.APIKey != "" {
		querySvc.WithRerank(jina.NewReranker(&jina.Config{
			APIKey:  cfg.Rerank.APIKey,
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
			Timeout: time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
			Logger:  logger,
		}))
		logger.Info("Reranker enabled", zap.String("model", cfg.Rerank.Model))
	}

	feedbackStore, err := feedbackrepo.Open(cfg.Feedback.DBPath)
	if err != nil {
		logger.Fatal("Failed to open feedback store", zap.Error(err))
	}
	defer func() { _ = feedbackStore.Close() }()

	feedbackSvc := feedbackuc.New(feedbackStore)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), feedbackStore)

	server := chiTransport.NewServer(querySvc, feedbackSvc, healthSvc, cat, cfg.Auth.APISecret, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
// The cache decorator hides the provider's HealthCheck, so probe via assertion.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the embedder chain: OpenAI-compatible provider,
// optionally wrapped in the Redis-backed cache.
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:        cfg.Embedding.APIKey,
		BaseURL:       cfg.Embedding.BaseURL,
		Model:         cfg.Embedding.Model,
		Dimensions:    cfg.Embedding.Dimensions,
		MaxInputRunes: cfg.Embedding.MaxInputRunes,
		Timeout:       time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:        logger,
	})

	if cfg.Embedding.CacheTTLSec <= 0 {
		return base
	}
	return embcache.New(
		base, store, cfg.Search.KeyPrefix,
		time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
