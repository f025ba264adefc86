package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civiclink/backend/internal/db"
	"github.com/civiclink/backend/internal/geo"
	"github.com/civiclink/backend/internal/models"
	"github.com/civiclink/backend/internal/progress"
)

const (
	defaultProcessTimeout = 2 * time.Minute
	streamKeepAlive       = 15 * time.Second
)

type SubmitReportRequest struct {
	Description string `form:"description" validate:"required,min=20,max=5000"`
	Zone        string `form:"zone" validate:"required,max=200"`
	State       string `form:"state" validate:"omitempty,max=100"`
	UserID      string `form:"userId" validate:"required"`
	UserEmail   string `form:"userEmail" validate:"required,email"`
}

type SubmitReportResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ImageURL  string `json:"image_url,omitempty"`
	StreamURL string `json:"stream_url"`
}

// @Summary Submit a civic issue report
// @Description Stores the report and routes it to a department in the background
// @Tags reports
// @Accept multipart/form-data
// @Produce json
// @Param description formData string true "What is wrong (at least 20 characters)"
// @Param zone formData string true "Location or zone"
// @Param state formData string false "State name"
// @Param userId formData string true "Submitting user id"
// @Param userEmail formData string true "Submitting user email"
// @Param image formData file false "Photo, images only"
// @Success 202 {object} SubmitReportResponse
// @Failure 400 {object} map[string]any
// @Router /api/reports [post]
func (h *Handler) SubmitReport(c *gin.Context) {
	var req SubmitReportRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	req.Zone = strings.TrimSpace(req.Zone)
	req.State = strings.TrimSpace(req.State)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if req.State != "" {
		if _, ok := geo.ZonesFor(req.State); !ok {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown state", req.State)
			return
		}
	}

	id := h.newID()
	imageURL := ""
	file, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid image upload", err.Error())
		return
	default:
		imageURL, err = h.saveImage(c, file)
		if err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_IMAGE", err.Error(), nil)
			return
		}
	}

	now := h.now().UTC()
	report := models.Report{
		ID:          id,
		Description: req.Description,
		Zone:        req.Zone,
		State:       req.State,
		ImageURL:    imageURL,
		UserID:      req.UserID,
		UserEmail:   req.UserEmail,
		Status:      models.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Store.CreateReport(c.Request.Context(), report); err != nil {
		h.Logger.Error().Err(err).Msg("failed to create report")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create report", err.Error())
		return
	}

	timeout := h.ProcessTimeout
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}
	bg := context.WithoutCancel(c.Request.Context())
	h.goBackground(func() {
		ctx, cancel := context.WithTimeout(bg, timeout)
		defer cancel()
		if err := h.Processor.ProcessReport(ctx, report); err != nil {
			h.Logger.Warn().Err(err).Str("report_id", report.ID).Msg("report processing finished with error")
		}
	})

	c.JSON(http.StatusAccepted, SubmitReportResponse{
		ID:        id,
		Status:    models.StatusProcessing,
		ImageURL:  imageURL,
		StreamURL: "/api/reports/" + id + "/stream",
	})
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (h *Handler) saveImage(c *gin.Context, file *multipart.FileHeader) (string, error) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	if file.Size > limit {
		return "", fmt.Errorf("image exceeds %d MB", limit>>20)
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	_ = f.Close()
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	ext, ok := imageExtensions[http.DetectContentType(head[:n])]
	if !ok {
		return "", errors.New("only image files are allowed")
	}

	dir := h.UploadDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := h.newID() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return "", err
	}
	return strings.TrimRight(h.PublicBaseURL, "/") + "/uploads/" + name, nil
}

// @Summary Get a report
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} models.Report
// @Failure 404 {object} map[string]any
// @Router /api/reports/{id} [get]
func (h *Handler) GetReport(c *gin.Context) {
	r, err := h.Store.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Report not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get report", err.Error())
		return
	}
	c.JSON(http.StatusOK, r)
}

// @Summary List a user's reports
// @Tags reports
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} models.Report
// @Router /api/users/{userId}/reports [get]
func (h *Handler) UserReports(c *gin.Context) {
	reports, err := h.Store.ListUserReports(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list reports", err.Error())
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	c.JSON(http.StatusOK, reports)
}

// @Summary Stream report progress
// @Description Server-sent events: step events while processing, then one complete or error event
// @Tags reports
// @Produce text/event-stream
// @Param id path string true "Report ID"
// @Router /api/reports/{id}/stream [get]
func (h *Handler) StreamReport(c *gin.Context) {
	id := c.Param("id")
	r, err := h.Store.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Report not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get report", err.Error())
		return
	}

	replay, events, cancel := h.Progress.Subscribe(id)
	defer cancel()
	h.Metrics.StreamOpened()
	defer h.Metrics.StreamClosed()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for _, ev := range replay {
		c.SSEvent(ev.Type, ev)
	}
	if len(replay) == 0 && r.Status != models.StatusProcessing {
		c.SSEvent(terminalEvent(r).Type, terminalEvent(r))
		c.Writer.Flush()
		return
	}
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			_, _ = io.WriteString(c.Writer, ": keep-alive\n\n")
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(ev.Type, ev)
			c.Writer.Flush()
		}
	}
}

// terminalEvent describes a report that finished before anyone subscribed.
func terminalEvent(r models.Report) models.ProgressEvent {
	if r.Status == models.StatusFailed {
		return models.ProgressEvent{Type: progress.EventError, Message: r.Error, Status: r.Status, Progress: 100, Timestamp: r.UpdatedAt}
	}
	return models.ProgressEvent{
		Type:      progress.EventComplete,
		Message:   "Complaint filed with " + r.Department,
		Status:    r.Status,
		Progress:  100,
		Timestamp: r.UpdatedAt,
	}
}
