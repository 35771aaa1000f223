package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/internal/service"
	"github.com/noah-isme/courselab-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseView, *models.Pagination, error)
	Get(ctx context.Context, ref string) (*models.CourseView, error)
	Availability(ctx context.Context, ref string) (*models.CourseAvailability, error)
	Create(ctx context.Context, p authz.Principal, req models.CreateCourseRequest) (*models.CourseView, error)
	Update(ctx context.Context, p authz.Principal, ref string, req models.UpdateCourseRequest) (*models.CourseView, error)
	SetActive(ctx context.Context, p authz.Principal, ref string, active bool) (*models.CourseView, error)
	Delete(ctx context.Context, p authz.Principal, ref string) error
}

type rosterService interface {
	Roster(ctx context.Context, p authz.Principal, courseRef string) (*models.CourseDetail, []models.RosterEntry, error)
}

type rosterExporter interface {
	RenderRoster(ctx context.Context, p authz.Principal, courseRef, format string) (*service.ExportFile, error)
	PublishRoster(ctx context.Context, p authz.Principal, courseRef, format string) (*service.ExportLink, error)
}

// CourseHandler exposes the catalog and course rosters.
type CourseHandler struct {
	courses  courseService
	rosters  rosterService
	exporter rosterExporter
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, rosters rosterService, exporter rosterExporter) *CourseHandler {
	return &CourseHandler{courses: courses, rosters: rosters, exporter: exporter}
}

type rosterResponse struct {
	Course   models.CourseView    `json:"course"`
	Students []models.RosterEntry `json:"students"`
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param level query string false "BEGINNER, INTERMEDIATE or ADVANCED"
// @Param active query bool false "Active filter"
// @Param instructor_id query string false "Instructor ID"
// @Param search query string false "Title or description"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Level = models.CourseLevel(strings.ToUpper(c.Query("level")))
	filter.Active = boolQuery(c, "active")
	filter.InstructorID = c.Query("instructor_id")
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course by id or slug
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID or slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Availability godoc
// @Summary Remaining capacity of a course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID or slug"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/availability [get]
func (h *CourseHandler) Availability(c *gin.Context) {
	availability, err := h.courses.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), p, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID or slug"
// @Param payload body models.UpdateCourseRequest true "Course fields"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.UpdateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// SetActive godoc
// @Summary Open or close a course for enrollment
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID or slug"
// @Param payload body models.SetActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/active [put]
func (h *CourseHandler) SetActive(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req activePayload
	if !bindJSON(c, &req, "active flag required") {
		return
	}
	course, err := h.courses.SetActive(c.Request.Context(), p, c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course and its enrollments
// @Tags Courses
// @Security BearerAuth
// @Param id path string true "Course ID or slug"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary Students enrolled in a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID or slug"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/roster [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	course, roster, err := h.rosters.Roster(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	response.JSON(c, http.StatusOK, rosterResponse{Course: models.NewCourseView(*course), Students: roster}, nil)
}

// ExportRoster godoc
// @Summary Download the course roster
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course ID or slug"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /courses/{id}/roster/export [get]
func (h *CourseHandler) ExportRoster(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	file, err := h.exporter.RenderRoster(c.Request.Context(), p, c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Name, file.ContentType, file.Data)
}

// PublishRoster godoc
// @Summary Publish the roster behind an expiring download link
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID or slug"
// @Param format query string false "csv (default) or pdf"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/roster/links [post]
func (h *CourseHandler) PublishRoster(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	link, err := h.exporter.PublishRoster(c.Request.Context(), p, c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}
