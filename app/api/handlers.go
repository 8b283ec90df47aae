package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/extraction"
	"github.com/lysyi3m/steno-comb/app/tasks"
)

func NewHandler(committees database.CommitteeRepository, bills database.BillRepository,
	transcripts database.TranscriptRepository, discussions database.DiscussionRepository,
	extractor *tasks.Extractor, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		committees:  committees,
		bills:       bills,
		transcripts: transcripts,
		discussions: discussions,
		extractor:   extractor,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.transcripts.GetTranscriptCount(); err == nil {
		health["transcripts"] = count
	}

	if h.scheduler != nil {
		health["queue_length"] = h.scheduler.QueueLength()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.discussions.GetDiscussionStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_discussion_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := map[string]any{
		"discussions": map[string]any{
			"total":             stats.Total,
			"high_confidence":   stats.HighConfidence,
			"low_confidence":    stats.LowConfidence,
			"linked_to_bill":    stats.LinkedToBill,
			"by_status":         stats.ByStatus,
			"by_amendment_type": stats.ByAmendmentType,
		},
	}

	if count, err := h.committees.GetCommitteeCount(); err == nil {
		response["committees"] = count
	}
	if count, err := h.bills.GetBillCount(); err == nil {
		response["bills"] = count
	}
	if count, err := h.transcripts.GetTranscriptCount(); err == nil {
		response["transcripts"] = count
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetTranscript(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing transcript id parameter"})
		return
	}

	t, err := h.transcripts.GetTranscript(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_transcript", "transcript", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcript not found"})
		return
	}

	records, err := h.discussions.GetDiscussions(t.ID, c.Query("type"))
	if err != nil {
		slog.Error("Database error", "operation", "get_discussions", "transcript", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, newTranscriptResponse(t, records))
}

func (h *Handler) APIExtractTranscript(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing transcript id parameter"})
		return
	}

	extractionType, err := extraction.ParseType(c.DefaultQuery("type", string(extraction.TypeBillDiscussions)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid extraction type", "details": err.Error()})
		return
	}

	t, err := h.transcripts.GetTranscript(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_transcript", "transcript", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcript not found"})
		return
	}

	if t.ContentText == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Transcript has no content to extract"})
		return
	}

	task := tasks.NewExtractTranscriptsTask(h.extractor, tasks.ExtractRequest{
		Filter: database.TranscriptFilter{TranscriptIDs: []string{id}},
		Type:   extractionType,
		Force:  true,
	})
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing extract task", "transcript", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue extract task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Extraction task enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}
