package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/kdduha/caption-generator/internal/cache"
	"github.com/kdduha/caption-generator/internal/config"
	"github.com/kdduha/caption-generator/internal/handler"
	"github.com/kdduha/caption-generator/internal/llm"
	"github.com/kdduha/caption-generator/internal/metrics"
	"github.com/kdduha/caption-generator/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/kdduha/caption-generator/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Caption Generator API
// @version 1.0
// @description Generates social media captions for uploaded images with a multimodal model.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("failed to load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var model service.Model
	if cfg.Model.APIKey != "" {
		model = llm.NewOpenAIModel(llm.NewClient(cfg.Model), cfg.Model, cfg.Image.JPEGQuality)
		logger.Printf("model client initialized: %s\n", cfg.Model.Model)
	} else {
		logger.Println("WARNING: GEMINI_API_KEY is not set, caption requests will fail")
	}

	captionService := service.NewCaptionService(logger, model, cfg.Model, cfg.Image)

	if cfg.CacheEnable {
		redisCache := cache.NewRedisCache(
			cfg.RedisConfig.Addr,
			cfg.RedisConfig.Password,
			cfg.RedisConfig.DB,
			cfg.RedisConfig.TTL,
		)
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			logger.Printf("redis is not reachable yet: %v\n", err)
		}
		captionService.SetCacheClient(redisCache)
		logger.Println("set redis as cache")
	}

	h := handler.NewCaptionHandler(logger, captionService, cfg.Image.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Throttle(cfg.Server.ThrottleLimit),
		middleware.Timeout(cfg.Server.Timeout),
		metrics.Middleware,
	}...)

	r.Get("/", handler.Index)
	r.Handle("/static/*", handler.Static())
	r.Get("/healthz", h.Health)
	r.Post("/generate-caption", h.GenerateCaption)
	r.Post("/generate-caption/stream", h.GenerateCaptionStream)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Printf("server started :%s\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Println("server stopped")
}
