package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/services"
)

type RecommendationHandler struct {
	log    *logger.Logger
	engine *services.RecommendationEngine
}

func NewRecommendationHandler(log *logger.Logger, engine *services.RecommendationEngine) *RecommendationHandler {
	return &RecommendationHandler{
		log:    log.With("handler", "RecommendationHandler"),
		engine: engine,
	}
}

// GET /api/courses/:course_id/weeks/:week/recommendations?top_k=10&exclude_approved=true
func (h *RecommendationHandler) GetTopicRecommendations(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_week", err)
		return
	}

	recs, err := h.engine.RecommendForTopic(c.Request.Context(), courseID, week, services.RecommendOptions{
		TopK:            intQuery(c, "top_k", 0),
		MinSimilarity:   floatQuery(c, "min_similarity", 0),
		MinQuality:      floatQuery(c, "min_quality", 0),
		ExcludeApproved: c.Query("exclude_approved") == "true",
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "recommend_failed", err)
		return
	}
	RespondOK(c, gin.H{"recommendations": recs})
}

// GET /api/courses/:course_id/students/:student_id/recommendations?limit=10
func (h *RecommendationHandler) GetStudentRecommendations(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}

	recs, err := h.engine.RecommendForStudent(c.Request.Context(), studentID, courseID, intQuery(c, "limit", 0))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "recommend_failed", err)
		return
	}
	RespondOK(c, gin.H{"recommendations": recs})
}

// POST /api/courses/:course_id/automap
func (h *RecommendationHandler) AutoMap(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	created, err := h.engine.AutoMapMaterials(c.Request.Context(), courseID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "automap_failed", err)
		return
	}
	RespondOK(c, gin.H{"mappings_created": created})
}

// GET /api/courses/:course_id/bundles?per_week=3
func (h *RecommendationHandler) GetContextBundles(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	bundles, err := h.engine.GenerateContextBundles(c.Request.Context(), courseID, intQuery(c, "per_week", 3))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "bundles_failed", err)
		return
	}
	RespondOK(c, gin.H{"bundles": bundles})
}
