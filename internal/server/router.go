package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/handlers"
)

type RouterConfig struct {
	ServiceName           string
	AllowOrigins          []string
	CrawlHandler          *handlers.CrawlHandler
	MaterialHandler       *handlers.MaterialHandler
	RecommendationHandler *handlers.RecommendationHandler
	DedupHandler          *handlers.DedupHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5174"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Crawl
		api.POST("/crawl/run", cfg.CrawlHandler.RunCrawl)
		api.GET("/crawl/health", cfg.CrawlHandler.GetHealth)
		api.GET("/crawl/logs", cfg.CrawlHandler.GetLogs)
		api.GET("/crawl/sources/:source/stats", cfg.CrawlHandler.GetSourceStats)

		// Materials
		api.GET("/materials", cfg.MaterialHandler.ListMaterials)
		api.GET("/materials/:id", cfg.MaterialHandler.GetMaterial)
		api.POST("/materials/:id/view", cfg.MaterialHandler.RecordView)
		api.POST("/materials/embeddings/backfill", cfg.MaterialHandler.BackfillEmbeddings)

		// Recommendations
		api.GET("/courses/:course_id/weeks/:week/recommendations", cfg.RecommendationHandler.GetTopicRecommendations)
		api.GET("/courses/:course_id/students/:student_id/recommendations", cfg.RecommendationHandler.GetStudentRecommendations)
		api.POST("/courses/:course_id/automap", cfg.RecommendationHandler.AutoMap)
		api.GET("/courses/:course_id/bundles", cfg.RecommendationHandler.GetContextBundles)

		// Dedup
		api.GET("/dedup/scan", cfg.DedupHandler.Scan)
		api.POST("/dedup/merge", cfg.DedupHandler.Merge)
	}

	return router
}
