package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-scheduler/cmd/mainconfig"
	"github.com/wolfman30/appointment-scheduler/internal/api/router"
	"github.com/wolfman30/appointment-scheduler/internal/audit"
	appconfig "github.com/wolfman30/appointment-scheduler/internal/config"
	"github.com/wolfman30/appointment-scheduler/internal/extract"
	"github.com/wolfman30/appointment-scheduler/internal/geoip"
	"github.com/wolfman30/appointment-scheduler/internal/normalize"
	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/appointment-scheduler/internal/ocr"
	"github.com/wolfman30/appointment-scheduler/internal/pipeline"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/internal/validate"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting appointment-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisOptions := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(redisOptions)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, geoip caching disabled", "error", err)
			redisClient = nil
		}
	}

	geoOpts := []geoip.Option{geoip.WithLogger(logger)}
	if redisClient != nil {
		geoOpts = append(geoOpts, geoip.WithRedis(redisClient, cfg.GeoIPCacheTTL))
	}
	timezones := geoip.NewResolver(cfg.GeoIPBaseURL, cfg.DefaultTimezone, cfg.GeoIPTimeout, geoOpts...)

	pipelineOpts := []pipeline.Option{pipeline.WithMetrics(pipelineMetrics)}
	validator, cleanup := buildValidator(ctx, cfg, logger)
	if cleanup != nil {
		defer cleanup()
	}
	if validator != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithValidator(validator, cfg.AIValidationTimeout))
	}

	p := pipeline.New(extract.New(logger), normalize.New(logger), logger, pipelineOpts...)

	handlerOpts := []scheduling.Option{scheduling.WithMetrics(pipelineMetrics)}
	if cfg.OCRBaseURL != "" {
		ocrClient := ocr.NewClient(cfg.OCRBaseURL, cfg.OCRTimeout, ocr.WithLogger(logger))
		handlerOpts = append(handlerOpts, scheduling.WithImageReader(ocrClient, cfg.OCRMaxSize))
	}
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		handlerOpts = append(handlerOpts, scheduling.WithAuditStore(audit.NewStore(pool, logger)))
	}

	schedulingHandler := scheduling.NewHandler(p, timezones, cfg.DefaultTimezone, logger, handlerOpts...)

	r := router.New(&router.Config{
		Logger:             logger,
		Scheduling:         schedulingHandler,
		MetricsHandler:     promhttp.Handler(),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSec:    cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		ServiceName:        "appointment-scheduler",
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// resolveAIProvider maps AI_PROVIDER=auto to a concrete backend: gemini when
// an API key is present, bedrock when a model is configured, otherwise none.
func resolveAIProvider(cfg *appconfig.Config) string {
	provider := strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	if provider != "auto" {
		return provider
	}
	switch {
	case strings.TrimSpace(cfg.GeminiAPIKey) != "":
		return "gemini"
	case strings.TrimSpace(cfg.BedrockModelID) != "":
		return "bedrock"
	default:
		return "none"
	}
}

// buildValidator selects the AI validation backend from config. A missing or
// misconfigured backend disables validation rather than failing startup.
func buildValidator(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (validate.Validator, func()) {
	switch resolveAIProvider(cfg) {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, AI validation disabled")
			return nil, nil
		}
		v, err := validate.NewGeminiValidator(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini validator unavailable, AI validation disabled", "error", err)
			return nil, nil
		}
		return v, func() { _ = v.Close() }
	case "bedrock":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("AWS config unavailable, AI validation disabled", "error", err)
			return nil, nil
		}
		v, err := validate.NewBedrockValidator(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if err != nil {
			logger.Warn("bedrock validator unavailable, AI validation disabled", "error", err)
			return nil, nil
		}
		return v, nil
	case "", "none":
		logger.Info("AI validation disabled")
		return nil, nil
	default:
		logger.Warn("unknown AI provider, AI validation disabled", "provider", cfg.AIProvider)
		return nil, nil
	}
}
