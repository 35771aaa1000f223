package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/middleware"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/response"
)

type dashboardService interface {
	ForPrincipal(ctx context.Context, p authz.Principal) (interface{}, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Show godoc
// @Summary Role dashboard
// @Description Students see their enrollments, teachers their courses and admins platform counts
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Show(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	view, err := h.service.ForPrincipal(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ResponseMeta(c)
	meta["role"] = p.Role
	response.JSON(c, http.StatusOK, view, nil, meta)
}
