// Package router assembles the gin engine and the /api/v1 route table.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/handler"
	"github.com/noah-isme/courselab-api/internal/middleware"
	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/courselab-api/pkg/middleware/cors"
	"github.com/noah-isme/courselab-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/courselab-api/pkg/middleware/requestid"
	"github.com/noah-isme/courselab-api/pkg/reporting"
	"github.com/noah-isme/courselab-api/pkg/response"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Students    *handler.StudentHandler
	Instructors *handler.InstructorHandler
	Courses     *handler.CourseHandler
	Enrollments *handler.EnrollmentHandler
	Dashboard   *handler.DashboardHandler
	Feedback    *handler.FeedbackHandler
	Exports     *handler.ExportHandler
	Metrics     *handler.MetricsHandler
}

// Options carries the cross-cutting collaborators.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	AuthPerMinute  int
	AuthBurst      int
	Tokens         middleware.TokenValidator
	Audit          middleware.AuditWriter
	Requests       middleware.RequestObserver
	Reporter       *reporting.Reporter
	Logger         *zap.Logger
}

// New builds the engine with the global middleware chain and all routes.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(opts.Reporter.Recovery(func(c *gin.Context) { response.Error(c, appErrors.ErrInternal) }))
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Requests))
	r.Use(opts.Reporter.Middleware())
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	api := r.Group(opts.APIPrefix)
	auth := middleware.JWT(opts.Tokens)
	limiter := ratelimit.New(opts.AuthPerMinute, opts.AuthBurst)
	throttle := limiter.Middleware(func(c *gin.Context) { response.Error(c, appErrors.ErrTooManyRequests) })

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", throttle, h.Auth.Register)
	authRoutes.POST("/login", throttle, h.Auth.Login)
	authRoutes.POST("/refresh", throttle, h.Auth.Refresh)
	authRoutes.POST("/logout", auth, h.Auth.Logout)
	authRoutes.POST("/change-password", auth, throttle, h.Auth.ChangePassword)
	authRoutes.GET("/me", auth, h.Auth.Me)

	users := api.Group("/users", auth)
	users.GET("", middleware.Permit(authz.UserList), h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.PATCH("/:id", h.Users.Update)
	users.PUT("/:id/active", middleware.Permit(authz.UserManage), h.Users.SetActive)

	students := api.Group("/students", auth)
	students.GET("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Students.List)
	students.GET("/me", middleware.RequireRoles(models.RoleStudent), h.Students.Me)
	students.GET("/:id", middleware.Permit(authz.StudentRead), h.Students.Get)
	students.PATCH("/:id", middleware.Permit(authz.StudentUpdate), h.Students.Update)
	students.PUT("/:id/active", middleware.Permit(authz.StudentDeactivate), h.Students.SetActive)
	students.DELETE("/:id", middleware.Permit(authz.StudentDelete), h.Students.Delete)

	instructors := api.Group("/instructors")
	instructors.GET("", h.Instructors.List)
	instructors.GET("/me", auth, middleware.RequireRoles(models.RoleTeacher), h.Instructors.Me)
	instructors.GET("/:id", h.Instructors.Get)
	instructors.PATCH("/:id", auth, middleware.Permit(authz.InstructorUpdate), h.Instructors.Update)
	instructors.PUT("/:id/active", auth, middleware.Permit(authz.InstructorDeactivate), h.Instructors.SetActive)
	instructors.DELETE("/:id", auth, middleware.Permit(authz.InstructorDelete), h.Instructors.Delete)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/:id", h.Courses.Get)
	courses.GET("/:id/availability", h.Courses.Availability)
	courses.POST("", auth, middleware.Permit(authz.CourseCreate), h.Courses.Create)
	courses.PATCH("/:id", auth, middleware.Permit(authz.CourseUpdate), h.Courses.Update)
	courses.PUT("/:id/active", auth, middleware.Permit(authz.CourseUpdate), h.Courses.SetActive)
	courses.DELETE("/:id", auth, middleware.Permit(authz.CourseDelete), h.Courses.Delete)
	courses.GET("/:id/roster", auth, middleware.Permit(authz.CourseRoster), h.Courses.Roster)
	courses.GET("/:id/roster/export", auth, middleware.Permit(authz.CourseRoster),
		middleware.Audit(opts.Audit, opts.Logger, "ROSTER_EXPORT", "course"), h.Courses.ExportRoster)
	courses.POST("/:id/roster/links", auth, middleware.Permit(authz.CourseRoster),
		middleware.Audit(opts.Audit, opts.Logger, "ROSTER_PUBLISH", "course"), h.Courses.PublishRoster)

	enrollments := api.Group("/enrollments", auth)
	enrollments.GET("", h.Enrollments.List)
	enrollments.POST("", middleware.Permit(authz.EnrollCreate), h.Enrollments.Create)
	enrollments.GET("/:id", middleware.Permit(authz.EnrollRead), h.Enrollments.Get)
	enrollments.PUT("/:id/status", middleware.Permit(authz.EnrollComplete, authz.EnrollDrop), h.Enrollments.Transition)
	enrollments.PUT("/:id/grade", middleware.Permit(authz.EnrollGrade), h.Enrollments.SetGrade)

	api.GET("/dashboard", auth, h.Dashboard.Show)

	api.POST("/feedback", throttle, h.Feedback.Submit)
	api.GET("/feedback", auth, middleware.Permit(authz.FeedbackList), h.Feedback.List)

	api.GET("/exports/:token", h.Exports.Download)
	api.GET("/metrics/summary", auth, middleware.RequireRoles(models.RoleAdmin), h.Metrics.Snapshot)

	return r
}
