package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/dedup"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
)

type DedupHandler struct {
	log   *logger.Logger
	dedup *dedup.Deduplicator
}

func NewDedupHandler(log *logger.Logger, d *dedup.Deduplicator) *DedupHandler {
	return &DedupHandler{
		log:   log.With("handler", "DedupHandler"),
		dedup: d,
	}
}

// GET /api/dedup/scan?limit=100
func (h *DedupHandler) Scan(c *gin.Context) {
	groups, err := h.dedup.ScanAllDuplicates(c.Request.Context(), intQuery(c, "limit", 100))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "scan_failed", err)
		return
	}
	RespondOK(c, gin.H{"groups": groups})
}

type mergeRequest struct {
	KeepID    uuid.UUID   `json:"keep_id" binding:"required"`
	RemoveIDs []uuid.UUID `json:"remove_ids" binding:"required"`
}

// POST /api/dedup/merge
func (h *DedupHandler) Merge(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.dedup.MergeDuplicates(c.Request.Context(), req.KeepID, req.RemoveIDs); err != nil {
		RespondError(c, http.StatusInternalServerError, "merge_failed", err)
		return
	}
	RespondOK(c, gin.H{"kept": req.KeepID, "removed": len(req.RemoveIDs)})
}
