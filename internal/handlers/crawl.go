package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/services"
)

type CrawlHandler struct {
	log    *logger.Logger
	orch   *services.CrawlOrchestrator
	health *services.CrawlHealthService
}

func NewCrawlHandler(log *logger.Logger, orch *services.CrawlOrchestrator, health *services.CrawlHealthService) *CrawlHandler {
	return &CrawlHandler{
		log:    log.With("handler", "CrawlHandler"),
		orch:   orch,
		health: health,
	}
}

type runCrawlRequest struct {
	Source string `json:"source" binding:"required"`
	Query  string `json:"query" binding:"required"`
	Limit  int    `json:"limit"`
	Async  bool   `json:"async"`
}

// POST /api/crawl/run
func (h *CrawlHandler) RunCrawl(c *gin.Context) {
	var req runCrawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if req.Async {
		h.orch.RunCrawlAsync(c.Request.Context(), req.Source, req.Query, req.Limit)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "source": req.Source})
		return
	}

	run, err := h.orch.RunCrawl(c.Request.Context(), req.Source, req.Query, req.Limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "crawl_failed", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "unknown_source", errors.New("no crawler registered for source "+req.Source))
		return
	}
	RespondOK(c, run)
}

// GET /api/crawl/health?window_hours=24
func (h *CrawlHandler) GetHealth(c *gin.Context) {
	windowHours := intQuery(c, "window_hours", 24)
	summary, err := h.health.Summary(c.Request.Context(), time.Duration(windowHours)*time.Hour)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "health_failed", err)
		return
	}
	RespondOK(c, summary)
}

// GET /api/crawl/logs?source=youtube&status=failed&limit=50
func (h *CrawlHandler) GetLogs(c *gin.Context) {
	logs, err := h.health.RecentLogs(
		c.Request.Context(),
		c.Query("source"),
		c.Query("status"),
		intQuery(c, "limit", 50),
	)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "logs_failed", err)
		return
	}
	RespondOK(c, gin.H{"logs": logs})
}

// GET /api/crawl/sources/:source/stats?window_hours=168
func (h *CrawlHandler) GetSourceStats(c *gin.Context) {
	windowHours := intQuery(c, "window_hours", 168)
	stats, err := h.health.Stats(c.Request.Context(), c.Param("source"), time.Duration(windowHours)*time.Hour)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "stats_failed", err)
		return
	}
	RespondOK(c, stats)
}
