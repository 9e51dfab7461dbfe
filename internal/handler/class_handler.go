package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	"github.com/emadrasa/emadrasa-api/internal/service"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
	"github.com/emadrasa/emadrasa-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	Get(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, req dto.ClassRequest) (*dto.ClassScheduleResponse, error)
	Update(ctx context.Context, id string, req dto.ClassRequest) (*dto.ClassScheduleResponse, error)
	Delete(ctx context.Context, id string) error
}

type classScheduleLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntryDetail, error)
}

type classRosterService interface {
	Roster(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
}

type rosterExportService interface {
	ClassRoster(ctx context.Context, classID string, format service.ExportFormat) (*service.ExportResult, error)
}

// ClassHandler exposes class CRUD plus the schedule, roster and export
// sub-resources.
type ClassHandler struct {
	service  classService
	schedule classScheduleLister
	roster   classRosterService
	export   rosterExportService
}

// NewClassHandler constructs the handler.
func NewClassHandler(svc classService, schedule classScheduleLister, roster classRosterService, export rosterExportService) *ClassHandler {
	return &ClassHandler{service: svc, schedule: schedule, roster: roster, export: export}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param schoolId query string false "School ID"
// @Param teacherId query string false "Teacher ID"
// @Param grade query string false "Grade"
// @Param academicYear query string false "Academic year"
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.ClassFilter{
		SchoolID:     strings.TrimSpace(c.Query("schoolId")),
		TeacherID:    strings.TrimSpace(c.Query("teacherId")),
		Grade:        strings.TrimSpace(c.Query("grade")),
		AcademicYear: strings.TrimSpace(c.Query("academicYear")),
		Search:       strings.TrimSpace(c.Query("search")),
		Page:         page,
		PageSize:     size,
		SortBy:       strings.TrimSpace(c.Query("sortBy")),
		SortOrder:    strings.TrimSpace(c.Query("sortOrder")),
	}
	classes, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, paginationMeta(page, size, total))
}

// Get godoc
// @Summary Get one class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create a class with an optional weekly schedule
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.ClassRequest true "Class"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req dto.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update a class, optionally replacing its schedule
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ClassRequest true "Class"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req dto.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a class and its schedule
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204
// @Security BearerAuth
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Schedule godoc
// @Summary Get a class's weekly schedule
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/schedule [get]
func (h *ClassHandler) Schedule(c *gin.Context) {
	classID := c.Param("id")
	if _, err := h.service.Get(c.Request.Context(), classID); err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.schedule.ListByClass(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Roster godoc
// @Summary Get a class's active student roster
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/roster [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	roster, err := h.roster.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// ExportRoster godoc
// @Summary Download a class roster as CSV or PDF
// @Tags Classes
// @Produce octet-stream
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /classes/{id}/roster/export [get]
func (h *ClassHandler) ExportRoster(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv"))))
	result, err := h.export.ClassRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
