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

type studentService interface {
	List(ctx context.Context, p authz.Principal, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, p authz.Principal, id string) (*models.StudentDetail, error)
	Me(ctx context.Context, p authz.Principal) (*models.StudentDetail, error)
	Update(ctx context.Context, p authz.Principal, id string, req models.UpdateStudentRequest) (*models.StudentDetail, error)
	SetActive(ctx context.Context, p authz.Principal, id string, active bool) (*models.StudentDetail, error)
	Delete(ctx context.Context, p authz.Principal, id string) error
}

type instructorService interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.InstructorDetail, error)
	Me(ctx context.Context, p authz.Principal) (*models.InstructorDetail, error)
	Update(ctx context.Context, p authz.Principal, id string, req models.UpdateInstructorRequest) (*models.InstructorDetail, error)
	SetActive(ctx context.Context, p authz.Principal, id string, active bool) (*models.InstructorDetail, error)
	Delete(ctx context.Context, p authz.Principal, id string) error
}

// StudentHandler exposes student profile endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param faculty query string false "Faculty code"
// @Param active query bool false "Active filter"
// @Param search query string false "Name, email or student number"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var filter models.StudentFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Faculty = models.Faculty(strings.ToUpper(c.Query("faculty")))
	filter.Active = boolQuery(c, "active")
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	students, pagination, err := h.service.List(c.Request.Context(), p, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Me godoc
// @Summary Current student's profile
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/me [get]
func (h *StudentHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	student, err := h.service.Me(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	student, err := h.service.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body models.UpdateStudentRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [patch]
func (h *StudentHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.UpdateStudentRequest
	if !bindJSON(c, &req, "invalid student payload") {
		return
	}
	student, err := h.service.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SetActive godoc
// @Summary Activate or deactivate student
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body models.SetActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/active [put]
func (h *StudentHandler) SetActive(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req activePayload
	if !bindJSON(c, &req, "active flag required") {
		return
	}
	student, err := h.service.SetActive(c.Request.Context(), p, c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student and their enrollments
// @Tags Students
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// InstructorHandler exposes instructor profile endpoints.
type InstructorHandler struct {
	service instructorService
}

// NewInstructorHandler constructs InstructorHandler.
func NewInstructorHandler(svc instructorService) *InstructorHandler {
	return &InstructorHandler{service: svc}
}

// List godoc
// @Summary List instructors
// @Tags Instructors
// @Produce json
// @Param active query bool false "Active filter"
// @Param search query string false "Name or specialization"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	var filter models.InstructorFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Active = boolQuery(c, "active")
	filter.Search = c.Query("search")

	instructors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, pagination)
}

// Me godoc
// @Summary Current instructor's profile
// @Tags Instructors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /instructors/me [get]
func (h *InstructorHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	instructor, err := h.service.Me(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Get godoc
// @Summary Get instructor
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	instructor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Update godoc
// @Summary Update instructor profile
// @Tags Instructors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instructor ID"
// @Param payload body models.UpdateInstructorRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [patch]
func (h *InstructorHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.UpdateInstructorRequest
	if !bindJSON(c, &req, "invalid instructor payload") {
		return
	}
	instructor, err := h.service.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// SetActive godoc
// @Summary Activate or deactivate instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instructor ID"
// @Param payload body models.SetActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/active [put]
func (h *InstructorHandler) SetActive(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req activePayload
	if !bindJSON(c, &req, "active flag required") {
		return
	}
	instructor, err := h.service.SetActive(c.Request.Context(), p, c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Delete godoc
// @Summary Delete instructor
// @Description Courses taught by the instructor are kept without an instructor
// @Tags Instructors
// @Security BearerAuth
// @Param id path string true "Instructor ID"
// @Success 204
// @Router /instructors/{id} [delete]
func (h *InstructorHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
