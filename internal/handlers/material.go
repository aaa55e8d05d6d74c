package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/services"
)

type MaterialHandler struct {
	log       *logger.Logger
	materials repos.MaterialRepo
	engine    *services.RecommendationEngine
}

func NewMaterialHandler(log *logger.Logger, materials repos.MaterialRepo, engine *services.RecommendationEngine) *MaterialHandler {
	return &MaterialHandler{
		log:       log.With("handler", "MaterialHandler"),
		materials: materials,
		engine:    engine,
	}
}

// GET /api/materials?min_quality=0.5
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	minQuality := floatQuery(c, "min_quality", 0)
	materials, err := h.materials.ListByMinQuality(c.Request.Context(), nil, minQuality)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"materials": materials})
}

// GET /api/materials/:id
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	material, err := h.materials.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if material == nil {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("material not found"))
		return
	}
	RespondOK(c, material)
}

// POST /api/materials/:id/view
func (h *MaterialHandler) RecordView(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := h.materials.AddCounters(c.Request.Context(), nil, id, 1, 0); err != nil {
		RespondError(c, http.StatusInternalServerError, "update_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/materials/embeddings/backfill?batch_size=50
func (h *MaterialHandler) BackfillEmbeddings(c *gin.Context) {
	updated, err := h.engine.UpdateMaterialEmbeddings(c.Request.Context(), intQuery(c, "batch_size", 50))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "backfill_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": updated})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func floatQuery(c *gin.Context, key string, fallback float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
