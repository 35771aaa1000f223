package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/pkg/response"
)

type feedbackService interface {
	Submit(ctx context.Context, req models.CreateFeedbackRequest) (*models.Feedback, error)
	List(ctx context.Context, p authz.Principal, page, pageSize int) ([]models.Feedback, *models.Pagination, error)
}

// FeedbackHandler exposes the contact form.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs FeedbackHandler.
func NewFeedbackHandler(svc feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: svc}
}

// Submit godoc
// @Summary Send feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body models.CreateFeedbackRequest true "Feedback"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req models.CreateFeedbackRequest
	if !bindJSON(c, &req, "invalid feedback payload") {
		return
	}
	fb, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fb)
}

// List godoc
// @Summary List feedback
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	items, pagination, err := h.service.List(c.Request.Context(), p, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}
