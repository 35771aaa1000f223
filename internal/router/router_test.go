package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/courselab-api/internal/handler"
	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func testEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := Handlers{
		Auth:        handler.NewAuthHandler(nil),
		Users:       handler.NewUserHandler(nil),
		Students:    handler.NewStudentHandler(nil),
		Instructors: handler.NewInstructorHandler(nil),
		Courses:     handler.NewCourseHandler(nil, nil, nil),
		Enrollments: handler.NewEnrollmentHandler(nil),
		Dashboard:   handler.NewDashboardHandler(nil),
		Feedback:    handler.NewFeedbackHandler(nil),
		Exports:     handler.NewExportHandler(nil),
		Metrics:     handler.NewMetricsHandler(nil, nil, nil),
	}
	return New(h, Options{
		Tokens: staticTokens{
			"stu": {UserID: "u-stu", Role: models.RoleStudent},
			"tch": {UserID: "u-tch", Role: models.RoleTeacher},
		},
		AuthPerMinute: 60,
		AuthBurst:     1,
	})
}

func call(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	return callWithBody(r, method, path, token, "{}")
}

func callWithBody(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPublicProbes(t *testing.T) {
	r := testEngine()
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "").Code)

	rec := call(r, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouteGates(t *testing.T) {
	r := testEngine()

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/enrollments", "").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/v1/courses", "stu").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/api/v1/courses/c-1", "tch").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPut, "/api/v1/enrollments/e-1/grade", "stu").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/students", "stu").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/metrics/summary", "tch").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/feedback", "tch").Code)
}

func TestAuthRoutesAreThrottled(t *testing.T) {
	r := testEngine()
	first := callWithBody(r, http.MethodPost, "/api/v1/auth/login", "", "{")
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := callWithBody(r, http.MethodPost, "/api/v1/auth/login", "", "{")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "TOO_MANY_REQUESTS")
}
