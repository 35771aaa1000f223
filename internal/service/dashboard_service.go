package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/dto"
	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

type dashboardRepository interface {
	AdminSummary(ctx context.Context) (*dto.AdminDashboardResponse, error)
	TeacherCourses(ctx context.Context, instructorID string) ([]dto.TeacherCourseSummary, error)
	StudentEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo        dashboardRepository
	Students    studentLookup
	Instructors instructorLookup
	Cache       *CacheService
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// DashboardService composes the read-only role dashboards.
type DashboardService struct {
	repo        dashboardRepository
	students    studentLookup
	instructors instructorLookup
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &DashboardService{
		repo:        params.Repo,
		students:    params.Students,
		instructors: params.Instructors,
		cache:       params.Cache,
		ttl:         params.CacheTTL,
		logger:      params.Logger,
	}
}

// ForPrincipal returns the dashboard matching the caller's role.
func (s *DashboardService) ForPrincipal(ctx context.Context, p authz.Principal) (interface{}, error) {
	switch p.Role {
	case models.RoleStudent:
		return s.Student(ctx, p)
	case models.RoleTeacher:
		return s.Teacher(ctx, p)
	case models.RoleAdmin:
		return s.Admin(ctx, p)
	}
	return nil, appErrors.ErrForbidden
}

// Student returns the caller's profile, enrollments and grade summary.
func (s *DashboardService) Student(ctx context.Context, p authz.Principal) (*dto.StudentDashboardResponse, error) {
	if err := authz.Require(p, authz.DashboardStudent, p.UserID); err != nil {
		return nil, err
	}
	key := dashboardKey(p)
	var cached dto.StudentDashboardResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	profile, err := s.students.FindByUserID(ctx, p.UserID)
	if err != nil {
		return nil, lookupError(err, "student profile")
	}
	enrollments, err := s.repo.StudentEnrollments(ctx, profile.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load student dashboard")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}

	resp := &dto.StudentDashboardResponse{Profile: *profile, Enrollments: enrollments}
	var (
		gradeSum   float64
		gradeCount int
	)
	for _, e := range enrollments {
		switch e.Status {
		case models.EnrollmentActive:
			resp.Summary.Active++
		case models.EnrollmentCompleted:
			resp.Summary.Completed++
			if e.Grade != nil {
				gradeSum += *e.Grade
				gradeCount++
			}
		case models.EnrollmentDropped:
			resp.Summary.Dropped++
		}
	}
	if gradeCount > 0 {
		avg := math.Round(gradeSum/float64(gradeCount)*100) / 100
		resp.AverageGrade = &avg
	}

	s.cache.Set(ctx, key, resp, s.ttl)
	return resp, nil
}

// Teacher returns the caller's courses with capacity signals.
func (s *DashboardService) Teacher(ctx context.Context, p authz.Principal) (*dto.TeacherDashboardResponse, error) {
	if err := authz.Require(p, authz.DashboardTeacher, p.UserID); err != nil {
		return nil, err
	}
	key := dashboardKey(p)
	var cached dto.TeacherDashboardResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	profile, err := s.instructors.FindByUserID(ctx, p.UserID)
	if err != nil {
		return nil, lookupError(err, "instructor profile")
	}
	courses, err := s.repo.TeacherCourses(ctx, profile.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load teacher dashboard")
	}
	if courses == nil {
		courses = []dto.TeacherCourseSummary{}
	}

	resp := &dto.TeacherDashboardResponse{Profile: *profile, Courses: courses}
	for i := range resp.Courses {
		c := &resp.Courses[i]
		c.AvailableSlots = c.MaxStudents - c.ActiveEnrollments
		if c.AvailableSlots < 0 {
			c.AvailableSlots = 0
		}
		resp.Totals.ActiveStudents += c.ActiveEnrollments
	}
	resp.Totals.Courses = len(resp.Courses)

	s.cache.Set(ctx, key, resp, s.ttl)
	return resp, nil
}

// Admin returns platform-wide counts.
func (s *DashboardService) Admin(ctx context.Context, p authz.Principal) (*dto.AdminDashboardResponse, error) {
	if err := authz.Require(p, authz.DashboardAdmin); err != nil {
		return nil, err
	}
	var cached dto.AdminDashboardResponse
	if s.cache.Get(ctx, AdminDashboardKey, &cached) {
		return &cached, nil
	}
	summary, err := s.repo.AdminSummary(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load admin dashboard")
	}
	s.cache.Set(ctx, AdminDashboardKey, summary, s.ttl)
	return summary, nil
}

func dashboardKey(p authz.Principal) string {
	return DashboardCachePrefix + string(p.Role) + ":" + p.UserID
}
