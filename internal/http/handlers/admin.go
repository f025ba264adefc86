package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civiclink/backend/internal/ai"
	"github.com/civiclink/backend/internal/db"
	"github.com/civiclink/backend/internal/models"
	"github.com/civiclink/backend/internal/service"
)

type DebugCandidatesResponse struct {
	Zone       string                  `json:"zone"`
	Keywords   []string                `json:"keywords"`
	Filter     service.FilterResult    `json:"filter"`
	Decision   *models.RoutingDecision `json:"decision,omitempty"`
	Error      string                  `json:"error,omitempty"`
	AIError    string                  `json:"ai_error,omitempty"`
	DurationMS int64                   `json:"duration_ms"`
}

// @Summary Explain a routing decision
// @Description Runs filtering and department selection for an ad-hoc description without storing or emailing anything
// @Tags admin
// @Produce json
// @Param zone query string true "Zone"
// @Param description query string true "Issue description"
// @Success 200 {object} DebugCandidatesResponse
// @Router /api/admin/debug/candidates [get]
func (h *Handler) DebugCandidates(c *gin.Context) {
	zone := strings.TrimSpace(c.Query("zone"))
	description := strings.TrimSpace(c.Query("description"))
	if zone == "" || description == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "zone and description are required", nil)
		return
	}

	start := time.Now()
	// An empty report id keeps progress events out of the hub.
	outcome, fr := h.Router.Route(c.Request.Context(), models.Report{Description: description, Zone: zone})
	resp := DebugCandidatesResponse{
		Zone:       zone,
		Keywords:   h.Router.Keywords.Extract(description),
		Filter:     fr,
		Decision:   outcome.Decision,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	if outcome.AIError != nil {
		resp.AIError = outcome.AIError.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Run follow-ups now
// @Tags admin
// @Produce json
// @Success 200 {object} service.FollowupSummary
// @Router /api/admin/followups/run [post]
func (h *Handler) RunFollowups(c *gin.Context) {
	sum, err := h.Followups.Run(c.Request.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("follow-up run failed")
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Follow-up run failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Latest follow-up run
// @Tags admin
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/admin/followups/latest [get]
func (h *Handler) LatestFollowupRun(c *gin.Context) {
	run, err := h.Store.LatestRun(c.Request.Context(), service.RunKindFollowup)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load run", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

// @Summary AI provider health
// @Tags admin
// @Produce json
// @Success 200 {object} ai.HealthStatus
// @Failure 503 {object} ai.HealthStatus
// @Router /api/admin/ai/health [get]
func (h *Handler) AIHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()
	st := ai.Health(ctx, h.Completer, h.AIProvider)
	if st.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, st)
		return
	}
	c.JSON(http.StatusOK, st)
}
