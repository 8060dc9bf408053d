package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/nutrisafe/internal/config"
	"github.com/kailas-cloud/nutrisafe/internal/db"
	dbRedis "github.com/kailas-cloud/nutrisafe/internal/db/redis"
	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	logpkg "github.com/kailas-cloud/nutrisafe/internal/logger"
	"github.com/kailas-cloud/nutrisafe/internal/metrics"
	auditrepo "github.com/kailas-cloud/nutrisafe/internal/repository/audit"
	"github.com/kailas-cloud/nutrisafe/internal/repository/embcache"
	"github.com/kailas-cloud/nutrisafe/internal/repository/kbsource"
	"github.com/kailas-cloud/nutrisafe/internal/repository/snapshot"
	amqpTransport "github.com/kailas-cloud/nutrisafe/internal/transport/amqp"
	chiTransport "github.com/kailas-cloud/nutrisafe/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/nutrisafe/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/nutrisafe/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/nutrisafe/internal/usecase/health"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/kbload"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/match"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/resolve"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/safety"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/suggest"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/verdict"
	"github.com/kailas-cloud/nutrisafe/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting nutrisafe API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("kb_source", cfg.KB.Source),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterKBMetrics()
	metrics.RegisterSafetyMetrics()
	metrics.RegisterEmbeddingMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Key-value store is optional: it backs the snapshot mirror and the embedding cache.
	store := openStore(ctx, cfg.Database, logger)
	if store != nil {
		defer store.Close()
	}

	// Knowledge base: source -> loader -> holder
	holder := kb.NewHolder(kb.WithOnRetire(kbload.OnRetire(logger)))
	src, closeSrc, err := buildSource(ctx, cfg.KB)
	if err != nil {
		logger.Fatal("Failed to create knowledge base source", zap.Error(err))
	}
	defer closeSrc()

	// Pass nil interface (not typed nil pointer!) if the mirror is not configured.
	var mirror kbload.Mirror
	if store != nil {
		mirror = snapshot.New(store, cfg.KB.MirrorKeep)
	}
	loader := kbload.New(src, holder, mirror, logger)

	res, err := loader.Bootstrap(ctx)
	if err != nil {
		logger.Fatal("Failed to load knowledge base", zap.Error(err))
	}
	logger.Info("Knowledge base ready",
		zap.String("source", res.Source),
		zap.String("kb_version", res.Version),
		zap.String("checksum", res.Checksum),
	)

	// Verdict log
	serverOpts := []chiTransport.Option{chiTransport.WithReloader(loader)}
	healthOpts := []healthuc.Option{}
	if cfg.Audit.Path != "" {
		audit, err := auditrepo.Open(cfg.Audit.Path)
		if err != nil {
			logger.Fatal("Failed to open verdict log", zap.Error(err))
		}
		defer func() { _ = audit.Close() }()
		serverOpts = append(serverOpts, chiTransport.WithVerdictLog(audit))
		healthOpts = append(healthOpts, healthuc.WithAudit(audit))
		logger.Info("Verdict log enabled", zap.String("path", cfg.Audit.Path))
	}
	if store != nil {
		healthOpts = append(healthOpts, healthuc.WithDatabase(store))
	}

	// Name suggestions
	var embedder suggest.Embedder
	if cfg.Embedding.Provider != "" {
		inst := buildEmbedder(cfg.Embedding, store, logger)
		embedder = inst
		healthOpts = append(healthOpts, healthuc.WithEmbedding(inst))
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	// Create use case services
	safetySvc := safety.New(holder, match.New(), resolve.New(), verdict.New(), logger,
		safety.WithParallelism(cfg.Safety.Parallelism))
	suggestSvc := suggest.New(holder, embedder, cfg.Embedding.MinScore, logger)
	healthSvc := healthuc.New(holder, healthOpts...)

	// Create chi server
	server := chiTransport.NewServer(safetySvc, suggestSvc, holder, healthSvc, logger, serverOpts...)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		loader.Run(gctx, time.Duration(cfg.KB.ReloadIntervalSec)*time.Second)
		return nil
	})

	if cfg.AMQP.URL != "" {
		conn, ch, err := amqpTransport.Dial(cfg.AMQP.URL)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer func() { _ = conn.Close() }()
		sub := amqpTransport.NewSubscriber(ch, loader, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey, cfg.AMQP.Queue, logger)
		g.Go(func() error {
			// Polling keeps working without the broker.
			if err := sub.Run(gctx); err != nil {
				logger.Error("Knowledge base event subscription stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore connects to the key-value store. Returns nil when no addresses
// are configured. rueidis speaks to both redis and valkey.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) db.Store {
	if len(cfg.Addrs) == 0 {
		logger.Info("No key-value store configured, snapshot mirror and embedding cache disabled")
		return nil
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Driver:   cfg.Driver,
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}

	// Wait for database to be ready
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Driver))
	return store
}

// buildSource creates the configured knowledge base source and its cleanup func.
func buildSource(ctx context.Context, cfg config.KBConfig) (kbload.Source, func(), error) {
	switch cfg.Source {
	case config.SourceFile:
		return kbsource.NewFile(cfg.Path), func() {}, nil
	case config.SourcePostgres:
		pool, err := kbsource.OpenPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return kbsource.NewPostgres(pool), pool.Close, nil
	case config.SourceS3:
		client, err := kbsource.NewS3Client(ctx, kbsource.S3Params{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return kbsource.NewS3(client, cfg.S3.Bucket, cfg.S3.Key), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown knowledge base source %q", cfg.Source)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented
func buildEmbedder(cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
		embedder = embcache.New(base, store, cfg.Model, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (metrics + batch splitting)
	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, cfg.MaxBatchSize, logger)
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
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

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
