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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/config"
	logpkg "github.com/crave-labs/menugraph/internal/logger"
	"github.com/crave-labs/menugraph/internal/metrics"
	"github.com/crave-labs/menugraph/internal/repository/graph"
	"github.com/crave-labs/menugraph/internal/repository/similarity"
	chiTransport "github.com/crave-labs/menugraph/internal/transport/chi"
	openaiTransport "github.com/crave-labs/menugraph/internal/transport/openai"
	"github.com/crave-labs/menugraph/internal/usecase/aggregate"
	"github.com/crave-labs/menugraph/internal/usecase/examples"
	"github.com/crave-labs/menugraph/internal/usecase/fanout"
	"github.com/crave-labs/menugraph/internal/usecase/generalquery"
	"github.com/crave-labs/menugraph/internal/usecase/orchestrator"
	similarityuc "github.com/crave-labs/menugraph/internal/usecase/similarity"
	"github.com/crave-labs/menugraph/internal/version"
)

func main() {
	// .env is optional; real environments set variables directly.
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

	logger.Info("Starting menugraph API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("graph_uri", cfg.Graph.URI),
		zap.Strings("search_addrs", cfg.Search.Addrs),
	)

	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	// Graph store
	graphClient, err := graph.NewClient(graph.Config{
		URI:                cfg.Graph.URI,
		Username:           cfg.Graph.Username,
		Password:           cfg.Graph.Password,
		Database:           cfg.Graph.Database,
		MaxPoolSize:        cfg.Graph.MaxPoolSize,
		ConnectionLifetime: time.Duration(cfg.Graph.ConnectionLifetimeMin) * time.Minute,
		AcquisitionTimeout: time.Duration(cfg.Graph.AcquisitionTimeoutSec) * time.Second,
		ConnectTimeout:     time.Duration(cfg.Graph.ConnectTimeoutSec) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create graph client", zap.Error(err))
	}
	defer func() { _ = graphClient.Close(ctx) }()

	schema, err := graphClient.LoadSchema(ctx)
	if err != nil {
		logger.Fatal("Failed to introspect graph schema", zap.Error(err))
	}
	logger.Info("Graph schema loaded",
		zap.Int("labels", len(schema.Labels)),
		zap.Int("relationships", len(schema.Relationships)),
	)

	// Embedder and similarity store
	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	searchStore, err := similarity.NewStore(similarity.Config{
		Addrs:        cfg.Search.Addrs,
		Username:     cfg.Search.Username,
		Password:     cfg.Search.Password,
		DB:           cfg.Search.DB,
		DishIndex:    cfg.Search.DishIndex,
		ExampleIndex: cfg.Search.ExampleIndex,
	}, embedder)
	if err != nil {
		logger.Fatal("Failed to create search store", zap.Error(err))
	}
	defer searchStore.Close()

	if err := searchStore.WaitForReady(ctx, time.Duration(cfg.Search.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Search store not ready", zap.Error(err))
	}
	logger.Info("Connected to search store")

	// Language model
	selector := examples.NewSelector(searchStore, logger)
	llm := openaiTransport.NewLLM(&openaiTransport.LLMConfig{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Examples: selector,
		Logger:   logger,
	})
	logger.Info("Language model client created", zap.String("model", cfg.LLM.Model))

	// Use case services, wired at the composition root
	gate := similarityuc.NewGate(searchStore)
	fanoutSvc := fanout.New(gate, graphClient, logger, cfg.Pipeline.PriceTolerance)
	aggregateSvc := aggregate.New(logger).WithDefaultLimit(cfg.Pipeline.DefaultLimit)
	generalSvc := generalquery.New(llm, graphClient, schema, logger)

	asker := orchestrator.New(llm, llm, fanoutSvc, aggregateSvc, generalSvc, logger).
		WithTimeout(time.Duration(cfg.Pipeline.TimeoutSec) * time.Second).
		WithDefaultThreshold(cfg.Pipeline.DefaultThreshold)

	server := chiTransport.NewServer(asker, logger,
		chiTransport.Check{Name: "graph", Probe: func(ctx context.Context) error {
			_, err := graphClient.Query(ctx, "RETURN 1", nil)
			return err
		}},
		chiTransport.Check{Name: "search", Probe: searchStore.Ping},
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Handle("/metrics", promhttp.Handler())
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
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
