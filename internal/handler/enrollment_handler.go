package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, p authz.Principal, req models.EnrollRequest) (*models.EnrollmentDetail, error)
	Transition(ctx context.Context, p authz.Principal, id string, req models.TransitionRequest) (*models.EnrollmentDetail, error)
	SetGrade(ctx context.Context, p authz.Principal, id string, req models.GradeRequest) (*models.EnrollmentDetail, error)
	Get(ctx context.Context, p authz.Principal, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, p authz.Principal, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments visible to the caller
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Filter by student"
// @Param course_id query string false "Filter by course"
// @Param status query string false "ACTIVE, COMPLETED or DROPPED"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var filter models.EnrollmentFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.StudentID = c.Query("student_id")
	filter.CourseID = c.Query("course_id")
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), p, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Create godoc
// @Summary Enroll a student in a course
// @Description Students enroll themselves; admins pass student_id
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.EnrollRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), p, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Transition godoc
// @Summary Complete or drop an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments/{id}/status [put]
func (h *EnrollmentHandler) Transition(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.TransitionRequest
	if !bindJSON(c, &req, "invalid transition payload") {
		return
	}
	req.Status = models.EnrollmentStatus(strings.ToUpper(string(req.Status)))
	enrollment, err := h.enrollments.Transition(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// SetGrade godoc
// @Summary Record a grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.GradeRequest true "Grade between 0 and 5"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grade [put]
func (h *EnrollmentHandler) SetGrade(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.GradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	enrollment, err := h.enrollments.SetGrade(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
