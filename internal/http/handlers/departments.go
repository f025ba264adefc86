package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civiclink/backend/internal/geo"
	"github.com/civiclink/backend/internal/models"
)

// @Summary List departments
// @Tags departments
// @Produce json
// @Param jurisdiction query string false "Jurisdiction (case-insensitive)"
// @Param issue query string false "Handled issue tag"
// @Success 200 {array} models.Department
// @Router /api/departments [get]
func (h *Handler) DepartmentsList(c *gin.Context) {
	depts, err := h.Store.ListDepartmentsFiltered(c.Request.Context(), strings.TrimSpace(c.Query("jurisdiction")), strings.TrimSpace(c.Query("issue")))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list departments", err.Error())
		return
	}
	c.JSON(http.StatusOK, depts)
}

// @Summary Create or update a department
// @Description Departments are keyed by name; an existing name is overwritten
// @Tags departments
// @Accept json
// @Produce json
// @Param payload body models.Department true "Department"
// @Success 200 {object} models.Department
// @Failure 400 {object} map[string]any
// @Router /api/admin/departments [put]
func (h *Handler) UpsertDepartment(c *gin.Context) {
	var d models.Department
	if err := c.ShouldBindJSON(&d); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	d.DepartmentName = strings.TrimSpace(d.DepartmentName)
	d.Jurisdiction = strings.TrimSpace(d.Jurisdiction)
	if err := h.Validator.Struct(d); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	saved, err := h.Store.UpsertDepartment(c.Request.Context(), d)
	if err != nil {
		h.Logger.Error().Err(err).Str("department", d.DepartmentName).Msg("failed to upsert department")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save department", err.Error())
		return
	}
	h.Logger.Info().Str("department", saved.DepartmentName).Str("jurisdiction", saved.Jurisdiction).Msg("department saved")
	c.JSON(http.StatusOK, saved)
}

// @Summary List states
// @Tags locations
// @Produce json
// @Success 200 {array} string
// @Router /api/states [get]
func (h *Handler) States(c *gin.Context) {
	c.JSON(http.StatusOK, geo.StateNames())
}

// @Summary List zones of a state
// @Tags locations
// @Produce json
// @Param state path string true "State name"
// @Success 200 {array} string
// @Failure 404 {object} map[string]any
// @Router /api/states/{state}/zones [get]
func (h *Handler) Zones(c *gin.Context) {
	zones, ok := geo.ZonesFor(c.Param("state"))
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "State not found", nil)
		return
	}
	c.JSON(http.StatusOK, zones)
}
