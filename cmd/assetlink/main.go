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
	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/cache"
	cacheMemory "github.com/assetlink-cloud/assetlink/internal/cache/memory"
	cacheRedis "github.com/assetlink-cloud/assetlink/internal/cache/redis"
	"github.com/assetlink-cloud/assetlink/internal/config"
	"github.com/assetlink-cloud/assetlink/internal/domain"
	logpkg "github.com/assetlink-cloud/assetlink/internal/logger"
	"github.com/assetlink-cloud/assetlink/internal/metrics"
	"github.com/assetlink-cloud/assetlink/internal/transport/atlassian"
	chiTransport "github.com/assetlink-cloud/assetlink/internal/transport/chi"
	aggregateuc "github.com/assetlink-cloud/assetlink/internal/usecase/aggregate"
	healthuc "github.com/assetlink-cloud/assetlink/internal/usecase/health"
	"github.com/assetlink-cloud/assetlink/internal/version"
)

// cacheStore is what main needs from a cache backend: the codec store
// operations plus a health ping.
type cacheStore interface {
	cache.Store
	Ping(ctx context.Context) error
}

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

	logger.Info("Starting assetlink API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("jira_url", cfg.Jira.URL),
		zap.String("confluence_url", cfg.Confluence.URL),
	)

	// Create cache store based on driver
	var store cacheStore
	switch cfg.Cache.Driver {
	case "memory":
		store = cacheMemory.NewStore()
	case "redis":
		redisStore, err := cacheRedis.NewStore(cacheRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis cache store", zap.Error(err))
		}
		defer redisStore.Close()
		store = redisStore
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
	}

	// Register upstream metrics explicitly (no init())
	metrics.RegisterUpstreamMetrics()

	timeout := time.Duration(cfg.Search.TimeoutSec) * time.Second

	jiraClient := atlassian.NewJira(atlassian.JiraConfig{
		ClientConfig: clientConfig(cfg.Jira.ServiceConfig, cfg.Cloud, timeout, logger),
		Projects:     cfg.Jira.Projects,
		IssueTypes:   cfg.Jira.IssueTypes,
		MaxResults:   cfg.Jira.MaxResults,
	})
	confluenceClient := atlassian.NewConfluence(atlassian.ConfluenceConfig{
		ClientConfig: clientConfig(cfg.Confluence.ServiceConfig, cfg.Cloud, timeout, logger),
		Spaces:       cfg.Confluence.Spaces,
		MaxResults:   cfg.Confluence.MaxResults,
	})

	resultCache := cache.New(
		store,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.ResultCacheTotal,
		logger,
	)

	fields := make([]domain.SearchField, len(cfg.Search.Fields))
	for i, f := range cfg.Search.Fields {
		fields[i] = domain.SearchField{Name: f.Name, Attribute: f.Attribute, Enabled: f.Enabled}
	}

	relatedSvc := aggregateuc.New(jiraClient, confluenceClient, resultCache, fields, logger).
		WithDisplayPatterns(cfg.Search.DisplayPatterns)
	healthSvc := healthuc.New(store, jiraClient, confluenceClient)

	// Create chi server
	server := chiTransport.NewServer(relatedSvc, healthSvc, jiraClient, confluenceClient, timeout, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

// clientConfig maps one service's YAML section onto the transport config.
// Cloud credentials apply to both services when enabled.
func clientConfig(
	svc config.ServiceConfig,
	cloud config.CloudConfig,
	timeout time.Duration,
	logger *zap.Logger,
) atlassian.ClientConfig {
	return atlassian.ClientConfig{
		BaseURL:                svc.URL,
		Username:               svc.Username,
		Password:               svc.Password,
		Token:                  svc.Token,
		UseCloud:               cloud.Enabled,
		CloudEmail:             cloud.Email,
		CloudAPIToken:          cloud.APIToken,
		SkipTLSVerify:          svc.InsecureSkipVerify,
		LegacyTLSRenegotiation: svc.LegacyTLSRenegotiation,
		Timeout:                timeout,
		Logger:                 logger,
	}
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

			// Canonical log line — one line per request
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
