package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
	"github.com/emadrasa/emadrasa-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error)
	Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*dto.ValidateScheduleResponse, error)
	ConflictReport(ctx context.Context) (*dto.ConflictReportResponse, error)
	RoomUtilization(ctx context.Context) (*dto.RoomUtilizationResponse, error)
}

// ScheduleHandler exposes schedule queries and the conflict detection endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// List godoc
// @Summary List schedule entries
// @Tags Schedule
// @Produce json
// @Param classId query string false "Class ID"
// @Param subjectId query string false "Subject ID"
// @Param dayOfWeek query int false "Day of week (0-6)"
// @Param room query string false "Room"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		ClassID:   strings.TrimSpace(c.Query("classId")),
		SubjectID: strings.TrimSpace(c.Query("subjectId")),
		Room:      strings.TrimSpace(c.Query("room")),
	}
	if raw := strings.TrimSpace(c.Query("dayOfWeek")); raw != "" {
		day := queryInt(c, "dayOfWeek", -1)
		if day < 0 || day > 6 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be between 0 and 6"))
			return
		}
		filter.DayOfWeek = &day
	}

	entries, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Validate godoc
// @Summary Check a candidate schedule slot for conflicts
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ValidateScheduleRequest true "Candidate slot"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/validate [post]
func (h *ScheduleHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Conflicts godoc
// @Summary Report all schedule conflicts in the system
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/conflicts [get]
func (h *ScheduleHandler) Conflicts(c *gin.Context) {
	report, err := h.service.ConflictReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Rooms godoc
// @Summary Room utilization summary
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/rooms [get]
func (h *ScheduleHandler) Rooms(c *gin.Context) {
	report, err := h.service.RoomUtilization(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
