package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/config"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/crawler"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/db"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/dedup"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/embedding"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/handlers"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/observability"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/quality"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/server"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/services"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: utils.GetEnv("OTEL_SERVICE_NAME", "lms-pipeline", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer func() { _ = shutdownOTel(ctx) }()
	}

	// Pipeline config
	cfg, err := config.Load(utils.GetEnv("PIPELINE_CONFIG_PATH", "", log))
	if err != nil {
		log.Error("Could not load pipeline config", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional second-tier embedding cache)
	var rdb *redis.Client
	if addr := utils.GetEnv("REDIS_ADDR", "", log); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable, embedding cache runs in-process only", "error", err)
			rdb = nil
		}
	}

	// Repos
	log.Info("Setting up repos from main...")
	materialRepo := repos.NewMaterialRepo(thePG, log)
	mappingRepo := repos.NewMappingRepo(thePG, log)
	crawlRunRepo := repos.NewCrawlRunRepo(thePG, log)
	syllabusRepo := repos.NewSyllabusRepo(thePG, log)
	performanceRepo := repos.NewPerformanceRepo(thePG, log)
	ratingRepo := repos.NewRatingRepo(thePG, log)

	// Crawlers
	log.Info("Setting up crawlers from main...")
	fetcher := crawler.NewFetcher(log,
		time.Duration(cfg.Crawl.TimeoutSeconds)*time.Second,
		cfg.Crawl.MaxRetries,
	)
	registry := crawler.NewRegistry()
	if apiKey := utils.GetEnv("YOUTUBE_API_KEY", "", log); apiKey != "" {
		registry.Register(crawler.NewYouTubeCrawler(log, fetcher, apiKey, ""))
	}
	registry.Register(crawler.NewGitHubCrawler(log, fetcher, ""))
	registry.Register(crawler.NewArxivCrawler(log, fetcher, ""))
	if seeds := utils.GetEnv("WEB_ARTICLE_SEEDS", "", log); seeds != "" {
		registry.Register(crawler.NewWebArticleCrawler(log, fetcher,
			strings.Split(seeds, ","),
			int64(cfg.Crawl.MaxConcurrentFetches),
		))
	}
	log.Info("Crawlers registered", "sources", registry.Names())

	// Embeddings
	backend, err := embedding.NewOpenAIBackend(log, cfg.Embed.MaxChars)
	if err != nil {
		log.Error("Could not init embedding backend", "error", err)
		os.Exit(1)
	}
	embedCache := embedding.NewCache(log, backend, materialRepo,
		cfg.Embed.CacheCapacity,
		rdb,
		time.Duration(cfg.Embed.RedisTTLHours)*time.Hour,
	)

	// Services
	log.Info("Setting up services from main...")
	scorer := quality.NewScorer(log, cfg.Quality)
	deduplicator := dedup.New(thePG, log, materialRepo, mappingRepo)
	orchestrator := services.NewCrawlOrchestrator(
		thePG, log, registry,
		materialRepo, mappingRepo, crawlRunRepo, syllabusRepo,
		scorer, cfg.AutoMap,
	)
	engine := services.NewRecommendationEngine(
		thePG, log, embedCache,
		materialRepo, mappingRepo, syllabusRepo, performanceRepo, ratingRepo,
		cfg,
	)
	healthService := services.NewCrawlHealthService(log, crawlRunRepo, registry)

	// Handlers
	log.Info("Setting up handlers from main...")
	crawlHandler := handlers.NewCrawlHandler(log, orchestrator, healthService)
	materialHandler := handlers.NewMaterialHandler(log, materialRepo, engine)
	recommendationHandler := handlers.NewRecommendationHandler(log, engine)
	dedupHandler := handlers.NewDedupHandler(log, deduplicator)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log); raw != "" {
		origins = strings.Split(raw, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		ServiceName:           utils.GetEnv("OTEL_SERVICE_NAME", "lms-pipeline", log),
		AllowOrigins:          origins,
		CrawlHandler:          crawlHandler,
		MaterialHandler:       materialHandler,
		RecommendationHandler: recommendationHandler,
		DedupHandler:          dedupHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
