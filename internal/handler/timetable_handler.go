package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/timetable-api/internal/dto"
	"github.com/edustack/timetable-api/internal/middleware"
	"github.com/edustack/timetable-api/internal/service"
	appErrors "github.com/edustack/timetable-api/pkg/errors"
	"github.com/edustack/timetable-api/pkg/response"
)

// TimetableHandler wires timetable generation and views to HTTP routes.
type TimetableHandler struct {
	timetables *service.TimetableService
	teachers   *service.TeacherService
}

// NewTimetableHandler constructs a new TimetableHandler.
func NewTimetableHandler(timetables *service.TimetableService, teachers *service.TeacherService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, teachers: teachers}
}

// Generate godoc
// @Summary Generate timetables for all classes
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation parameters"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.timetables.Generate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List all class timetables
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	timetables, cacheHit, err := h.timetables.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, timetables, nil, middleware.ExtractMeta(c))
}

// GetByClass godoc
// @Summary Get a single class timetable
// @Tags Timetables
// @Produce json
// @Param class path string true "Class name"
// @Success 200 {object} response.Envelope
// @Router /timetables/{class} [get]
func (h *TimetableHandler) GetByClass(c *gin.Context) {
	timetable, cacheHit, err := h.timetables.GetByClass(c.Request.Context(), c.Param("class"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, timetable, nil, middleware.ExtractMeta(c))
}

// MyTimetable godoc
// @Summary Get the calling teacher's timetable
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables/me [get]
func (h *TimetableHandler) MyTimetable(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	teacher, err := h.teachers.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.timetables.TeacherView(c.Request.Context(), teacher.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// TeacherView godoc
// @Summary Get a teacher's timetable by ID
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/teachers/{id} [get]
func (h *TimetableHandler) TeacherView(c *gin.Context) {
	view, err := h.timetables.TeacherView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// DeleteByClass godoc
// @Summary Delete one class timetable
// @Tags Timetables
// @Param class path string true "Class name"
// @Success 204
// @Router /timetables/{class} [delete]
func (h *TimetableHandler) DeleteByClass(c *gin.Context) {
	if err := h.timetables.DeleteByClass(c.Request.Context(), c.Param("class")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteAll godoc
// @Summary Delete all timetables
// @Tags Timetables
// @Success 204
// @Router /timetables [delete]
func (h *TimetableHandler) DeleteAll(c *gin.Context) {
	if err := h.timetables.DeleteAll(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Export one class timetable as CSV
// @Tags Timetables
// @Produce text/csv
// @Param class path string true "Class name"
// @Success 200 {string} string "CSV payload"
// @Router /timetables/{class}/export/csv [get]
func (h *TimetableHandler) ExportCSV(c *gin.Context) {
	className := c.Param("class")
	payload, err := h.timetables.ExportCSV(c.Request.Context(), className)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%s.csv", className))
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export one class timetable as PDF
// @Tags Timetables
// @Produce application/pdf
// @Param class path string true "Class name"
// @Success 200 {string} string "PDF payload"
// @Router /timetables/{class}/export/pdf [get]
func (h *TimetableHandler) ExportPDF(c *gin.Context) {
	className := c.Param("class")
	payload, err := h.timetables.ExportPDF(c.Request.Context(), className)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%s.pdf", className))
	c.Data(http.StatusOK, "application/pdf", payload)
}
