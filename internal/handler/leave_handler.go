package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edustack/timetable-api/internal/dto"
	"github.com/edustack/timetable-api/internal/models"
	"github.com/edustack/timetable-api/internal/service"
	appErrors "github.com/edustack/timetable-api/pkg/errors"
	"github.com/edustack/timetable-api/pkg/response"
)

// LeaveHandler wires leave requests and substitutions to HTTP routes.
type LeaveHandler struct {
	leaves *service.LeaveService
}

// NewLeaveHandler constructs a new LeaveHandler.
func NewLeaveHandler(leaves *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaves: leaves}
}

// Apply godoc
// @Summary File a leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.ApplyLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	var req dto.ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	leave, err := h.leaves.Apply(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// MyLeaves godoc
// @Summary List the calling teacher's leave requests
// @Tags Leaves
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaves/me [get]
func (h *LeaveHandler) MyLeaves(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	leaves, err := h.leaves.MyLeaves(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// Pending godoc
// @Summary List pending leave requests oldest first
// @Tags Leaves
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaves/pending [get]
func (h *LeaveHandler) Pending(c *gin.Context) {
	leaves, err := h.leaves.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// Approve godoc
// @Summary Approve a leave request and resolve substitutes
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.ReviewLeaveRequest false "Review comment"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/approve [post]
func (h *LeaveHandler) Approve(c *gin.Context) {
	var req dto.ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	substitutions, err := h.leaves.Approve(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, substitutions, nil)
}

// Reject godoc
// @Summary Reject a leave request
// @Tags Leaves
// @Accept json
// @Param id path string true "Leave request ID"
// @Param payload body dto.ReviewLeaveRequest false "Review comment"
// @Success 204
// @Router /leaves/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	var req dto.ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.leaves.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Substitutions godoc
// @Summary List substitutions
// @Tags Substitutions
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param status query string false "Filter by status (assigned/unassigned)"
// @Success 200 {object} response.Envelope
// @Router /substitutions [get]
func (h *LeaveHandler) Substitutions(c *gin.Context) {
	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
			return
		}
		date = &parsed
	}

	var status *models.SubstitutionStatus
	switch strings.ToLower(c.Query("status")) {
	case string(models.SubstitutionAssigned):
		st := models.SubstitutionAssigned
		status = &st
	case string(models.SubstitutionUnassigned):
		st := models.SubstitutionUnassigned
		status = &st
	}

	substitutions, err := h.leaves.ListSubstitutions(c.Request.Context(), date, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, substitutions, nil)
}

// SubstitutionsForLeave godoc
// @Summary List substitutions created for one leave request
// @Tags Substitutions
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/substitutions [get]
func (h *LeaveHandler) SubstitutionsForLeave(c *gin.Context) {
	substitutions, err := h.leaves.SubstitutionsForLeave(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, substitutions, nil)
}

// FreeTeachers godoc
// @Summary List candidate substitutes for one open slot
// @Tags Substitutions
// @Produce json
// @Param id path string true "Substitution ID"
// @Success 200 {object} response.Envelope
// @Router /substitutions/{id}/free-teachers [get]
func (h *LeaveHandler) FreeTeachers(c *gin.Context) {
	candidates, err := h.leaves.FreeTeachers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// AssignSubstitute godoc
// @Summary Manually assign or clear a substitute
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param id path string true "Substitution ID"
// @Param payload body dto.AssignSubstituteRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /substitutions/{id}/assign [put]
func (h *LeaveHandler) AssignSubstitute(c *gin.Context) {
	var req dto.AssignSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	result, err := h.leaves.AssignSubstitute(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
