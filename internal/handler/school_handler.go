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

type schoolService interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	Get(ctx context.Context, id string) (*models.School, error)
	Create(ctx context.Context, req dto.SchoolRequest) (*models.School, error)
	Update(ctx context.Context, id string, req dto.SchoolRequest) (*models.School, error)
	Delete(ctx context.Context, id string) error
}

// SchoolHandler exposes school CRUD endpoints.
type SchoolHandler struct {
	service schoolService
}

// NewSchoolHandler constructs the handler.
func NewSchoolHandler(service schoolService) *SchoolHandler {
	return &SchoolHandler{service: service}
}

// List godoc
// @Summary List schools
// @Tags Schools
// @Produce json
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.SchoolFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      page,
		PageSize:  size,
		SortBy:    strings.TrimSpace(c.Query("sortBy")),
		SortOrder: strings.TrimSpace(c.Query("sortOrder")),
	}
	schools, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, paginationMeta(page, size, total))
}

// Get godoc
// @Summary Get one school
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Create godoc
// @Summary Create a school
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body dto.SchoolRequest true "School"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /schools [post]
func (h *SchoolHandler) Create(c *gin.Context) {
	var req dto.SchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school payload"))
		return
	}
	school, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// Update godoc
// @Summary Update a school
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.SchoolRequest true "School"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id} [put]
func (h *SchoolHandler) Update(c *gin.Context) {
	var req dto.SchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school payload"))
		return
	}
	school, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Delete godoc
// @Summary Delete a school
// @Tags Schools
// @Param id path string true "School ID"
// @Success 204
// @Security BearerAuth
// @Router /schools/{id} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
