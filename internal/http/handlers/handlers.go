package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civiclink/backend/internal/ai"
	"github.com/civiclink/backend/internal/metrics"
	"github.com/civiclink/backend/internal/models"
	"github.com/civiclink/backend/internal/progress"
	"github.com/civiclink/backend/internal/service"
)

// Store is the persistence the API needs on top of the pipeline's registry and report store.
type Store interface {
	service.Registry
	service.ReportStore
	Ping(ctx context.Context) error
	ListDepartmentsFiltered(ctx context.Context, jurisdiction, issue string) ([]models.Department, error)
	UpsertDepartment(ctx context.Context, d models.Department) (models.Department, error)
	LatestRun(ctx context.Context, kind string) (models.Run, error)
}

type Processor interface {
	ProcessReport(ctx context.Context, r models.Report) error
}

type FollowupRunner interface {
	Run(ctx context.Context) (service.FollowupSummary, error)
}

type Handler struct {
	Store     Store
	Processor Processor
	Router    *service.Engine
	Followups FollowupRunner
	Progress  *progress.Hub
	Completer ai.Completer
	Metrics   *metrics.Metrics
	Validator *validator.Validate
	Logger    zerolog.Logger

	AIProvider     string
	UploadDir      string
	PublicBaseURL  string
	MaxUploadBytes int64
	// ProcessTimeout bounds background processing of one report.
	ProcessTimeout time.Duration

	// Go runs background work; nil means a plain goroutine.
	Go    func(func())
	NewID func() string
	Now   func() time.Time
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func (h *Handler) goBackground(fn func()) {
	if h.Go != nil {
		h.Go(fn)
		return
	}
	go fn()
}

func (h *Handler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
