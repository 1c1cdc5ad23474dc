package handlers

import (
	"errors"
	"net/http"

	"eventpulse/backend/internal/api"
	"eventpulse/backend/internal/dedup"
	"eventpulse/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// DedupHandler handles deduplication-related HTTP requests
type DedupHandler struct {
	orch      *dedup.Orchestrator
	validator *validator.Validate
}

// NewDedupHandler creates a new dedup handler
func NewDedupHandler(orch *dedup.Orchestrator) *DedupHandler {
	return &DedupHandler{
		orch:      orch,
		validator: validator.New(),
	}
}

// CheckDuplicatesRequest represents the request to check an event against a candidate pool
type CheckDuplicatesRequest struct {
	Event      dedup.EventRecord   `json:"event" validate:"required"`
	Candidates []dedup.EventRecord `json:"candidates"`
}

// MergeDecisionRequest represents the request to build a merge decision preview
type MergeDecisionRequest struct {
	Primary    dedup.EventRecord   `json:"primary" validate:"required"`
	Duplicates []dedup.EventRecord `json:"duplicates" validate:"required,min=1"`
	Strategy   string              `json:"strategy" validate:"required,oneof=enhance_primary quality_based manual"`
}

// ExecuteMergeRequest represents the request to merge duplicates into a primary event
type ExecuteMergeRequest struct {
	Primary    dedup.EventRecord   `json:"primary" validate:"required"`
	Duplicates []dedup.EventRecord `json:"duplicates" validate:"required,min=1"`
	Strategy   string              `json:"strategy" validate:"required,oneof=enhance_primary quality_based manual"`
	MergedBy   string              `json:"merged_by" validate:"omitempty,max=255"`
}

// ProcessEventsRequest represents the request to run a batch through the pipeline
type ProcessEventsRequest struct {
	Events []dedup.EventRecord `json:"events" validate:"required,min=1"`
	Mode   string              `json:"mode" validate:"required,oneof=detect merge"`
}

// CheckDuplicates checks one event against a pool of candidates
func (h *DedupHandler) CheckDuplicates(c *gin.Context) {
	var req CheckDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		api.SendValidationError(c, "Validation failed", err.Error())
		return
	}

	if req.Event.ID == "" {
		api.SendValidationError(c, "Validation failed", "event.id is required")
		return
	}

	result, err := h.orch.CheckForDuplicates(req.Event, req.Candidates)
	if err != nil {
		if errors.Is(err, dedup.ErrNotInitialized) {
			api.SendError(c, http.StatusServiceUnavailable, api.ErrCodeUnavailable, "Engine not initialized", nil)
			return
		}
		api.SendInternalError(c, err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, result)
}

// CreateMergeDecision builds a merge decision without executing it
func (h *DedupHandler) CreateMergeDecision(c *gin.Context) {
	var req MergeDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		api.SendValidationError(c, "Validation failed", err.Error())
		return
	}

	decision, err := h.orch.CreateMergeDecision(req.Primary, req.Duplicates, dedup.Strategy(req.Strategy))
	if err != nil {
		if errors.Is(err, dedup.ErrNotInitialized) {
			api.SendError(c, http.StatusServiceUnavailable, api.ErrCodeUnavailable, "Engine not initialized", nil)
			return
		}
		api.SendBadRequest(c, err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, decision)
}

// ExecuteMerge creates a merge decision and executes it atomically
func (h *DedupHandler) ExecuteMerge(c *gin.Context) {
	var req ExecuteMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		api.SendValidationError(c, "Validation failed", err.Error())
		return
	}

	decision, err := h.orch.CreateMergeDecision(req.Primary, req.Duplicates, dedup.Strategy(req.Strategy))
	if err != nil {
		if errors.Is(err, dedup.ErrNotInitialized) {
			api.SendError(c, http.StatusServiceUnavailable, api.ErrCodeUnavailable, "Engine not initialized", nil)
			return
		}
		api.SendBadRequest(c, err.Error())
		return
	}

	result, err := h.orch.ExecuteMerge(decision, req.MergedBy)
	if err != nil {
		api.SendInternalError(c, err.Error())
		return
	}

	if !result.Success {
		// Validation failures inside the merge leave no history entry
		api.SendError(c, http.StatusConflict, api.ErrCodeConflict, "Merge failed", result.Errors)
		return
	}

	logger.Info().
		Str("primary_event_id", decision.PrimaryEventID).
		Int("duplicates", len(decision.DuplicateEventIDs)).
		Str("strategy", string(decision.Strategy)).
		Msg("merge executed")

	api.SendSuccess(c, http.StatusOK, result)
}

// ProcessEvents runs a batch of events through the dedup pipeline
func (h *DedupHandler) ProcessEvents(c *gin.Context) {
	var req ProcessEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		api.SendValidationError(c, "Validation failed", err.Error())
		return
	}

	report, err := h.orch.ProcessEvents(req.Events, dedup.ProcessMode(req.Mode))
	if err != nil {
		if errors.Is(err, dedup.ErrNotInitialized) {
			api.SendError(c, http.StatusServiceUnavailable, api.ErrCodeUnavailable, "Engine not initialized", nil)
			return
		}
		api.SendBadRequest(c, err.Error())
		return
	}

	logger.Info().
		Int("processed", report.ProcessedCount).
		Int("duplicates", report.DuplicatesFound).
		Int("merged", report.MergedCount).
		Str("mode", req.Mode).
		Msg("batch processed")

	api.SendSuccess(c, http.StatusOK, report)
}

// GetEventHistory returns the merge history for a primary event
func (h *DedupHandler) GetEventHistory(c *gin.Context) {
	eventID := c.Param("eventId")
	if eventID == "" {
		api.SendBadRequest(c, "event id is required")
		return
	}

	entries := h.orch.GetEventHistory(eventID)
	if len(entries) == 0 {
		api.SendNotFound(c, "merge history for event "+eventID)
		return
	}

	api.SendSuccess(c, http.StatusOK, entries)
}

// GetReport returns aggregate merge statistics
func (h *DedupHandler) GetReport(c *gin.Context) {
	api.SendSuccess(c, http.StatusOK, h.orch.Report())
}

// GetConfig returns the current engine configuration
func (h *DedupHandler) GetConfig(c *gin.Context) {
	api.SendSuccess(c, http.StatusOK, h.orch.GetConfig())
}

// UpdateConfig applies a partial configuration update
func (h *DedupHandler) UpdateConfig(c *gin.Context) {
	var patch dedup.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	updated, fieldErrs := h.orch.UpdateConfig(patch)
	if len(fieldErrs) > 0 {
		api.SendValidationError(c, "Invalid configuration", fieldErrs)
		return
	}

	logger.Info().Msg("engine configuration updated")
	api.SendSuccess(c, http.StatusOK, updated)
}

// GetCacheStats returns matcher cache statistics
func (h *DedupHandler) GetCacheStats(c *gin.Context) {
	api.SendSuccess(c, http.StatusOK, h.orch.CacheStats())
}

// ClearCaches drops all cached fingerprints and similarity scores
func (h *DedupHandler) ClearCaches(c *gin.Context) {
	h.orch.ClearCaches()
	logger.Info().Msg("engine caches cleared")
	api.SendSuccess(c, http.StatusOK, gin.H{"cleared": true})
}

// ExportData exports merge history, configuration and performance counters
func (h *DedupHandler) ExportData(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=dedup_export.json")
	api.SendSuccess(c, http.StatusOK, h.orch.ExportData())
}

// ImportData restores a previously exported engine state
func (h *DedupHandler) ImportData(c *gin.Context) {
	var doc dedup.ExportDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	if fieldErrs := h.orch.ImportData(doc); len(fieldErrs) > 0 {
		api.SendValidationError(c, "Invalid import document", fieldErrs)
		return
	}

	logger.Info().Int("history_entries", len(doc.MergeHistory)).Msg("engine state imported")
	api.SendSuccess(c, http.StatusOK, gin.H{"imported": true})
}
