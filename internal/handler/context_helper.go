package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/middleware"
	"github.com/noah-isme/courselab-api/internal/service"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/response"
)

// principal returns the authenticated caller or writes a 401.
func principal(c *gin.Context) (authz.Principal, bool) {
	p, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return authz.Principal{}, false
	}
	return p, true
}

// bindJSON decodes the body into dst or writes a 400.
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

func boolQuery(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &val
}

type activePayload struct {
	Active *bool `json:"active" binding:"required"`
}
