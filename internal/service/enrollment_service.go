package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/internal/repository"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/validation"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Transition(ctx context.Context, id string, status models.EnrollmentStatus, grade *float64) (*models.Enrollment, error)
	SetGrade(ctx context.Context, id string, grade float64) (*models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type courseResolver interface {
	Resolve(ctx context.Context, ref string) (*models.CourseDetail, error)
}

type enrollmentNotifier interface {
	EnrollmentConfirmed(ctx context.Context, e models.EnrollmentDetail)
	EnrollmentClosed(ctx context.Context, e models.EnrollmentDetail)
}

// EnrollmentServiceParams groups constructor dependencies.
type EnrollmentServiceParams struct {
	Repo        enrollmentRepository
	Students    studentLookup
	Instructors instructorLookup
	Courses     courseResolver
	Notifier    enrollmentNotifier
	Cache       *CacheService
	Metrics     *MetricsService
	Audit       auditRecorder
	Validator   *validation.Validator
	Logger      *zap.Logger
}

// EnrollmentService owns the enrollment ledger use cases.
type EnrollmentService struct {
	repo        enrollmentRepository
	students    studentLookup
	instructors instructorLookup
	courses     courseResolver
	notifier    enrollmentNotifier
	cache       *CacheService
	metrics     *MetricsService
	audit       auditRecorder
	validator   *validation.Validator
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(params EnrollmentServiceParams) *EnrollmentService {
	if params.Validator == nil {
		params.Validator = validation.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:        params.Repo,
		students:    params.Students,
		instructors: params.Instructors,
		courses:     params.Courses,
		notifier:    params.Notifier,
		cache:       params.Cache,
		metrics:     params.Metrics,
		audit:       params.Audit,
		validator:   params.Validator,
		logger:      params.Logger,
	}
}

// Enroll registers a student in a course. Students enroll themselves; admins
// enroll any student.
func (s *EnrollmentService) Enroll(ctx context.Context, p authz.Principal, req models.EnrollRequest) (*models.EnrollmentDetail, error) {
	if !authz.Permits(p.Role, authz.EnrollCreate) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req, "invalid enrollment payload"); err != nil {
		return nil, err
	}

	student, err := s.resolveStudent(ctx, p, req.StudentID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(p, authz.EnrollCreate, student.UserID); err != nil {
		return nil, err
	}

	start := time.Now()
	enrollment, err := s.repo.Enroll(ctx, student.ID, req.CourseID)
	s.metrics.ObserveDBQuery("enroll", time.Since(start))
	if err != nil {
		outcome, mapped := classifyEnrollError(err)
		s.metrics.RecordEnrollment(outcome)
		if outcome == OutcomeFailed {
			s.logger.Error("enrollment failed", zap.String("student_id", student.ID), zap.String("course_id", req.CourseID), zap.Error(err))
		}
		return nil, mapped
	}
	s.metrics.RecordEnrollment(OutcomeEnrolled)
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, models.AuditActionEnrollmentCreate, "enrollment", enrollment.ID, enrollment)

	detail, err := s.repo.FindByID(ctx, enrollment.ID)
	if err != nil {
		s.logger.Warn("enrollment created but reload failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		return &models.EnrollmentDetail{Enrollment: *enrollment, StudentUserID: student.UserID}, nil
	}
	if s.notifier != nil {
		s.notifier.EnrollmentConfirmed(ctx, *detail)
	}
	return detail, nil
}

// Transition moves an ACTIVE enrollment to COMPLETED (optionally graded) or
// DROPPED. Anything else is an InvalidTransition state error.
func (s *EnrollmentService) Transition(ctx context.Context, p authz.Principal, id string, req models.TransitionRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req, "invalid transition payload"); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if !current.Status.CanTransitionTo(req.Status) {
		s.metrics.RecordTransition(OutcomeStaleState)
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move enrollment from %s to %s", current.Status, req.Status))
	}
	action := authz.EnrollDrop
	if req.Status == models.EnrollmentCompleted {
		action = authz.EnrollComplete
	}
	if err := authz.Require(p, action, current.Owners()...); err != nil {
		return nil, err
	}
	if req.Grade != nil && req.Status != models.EnrollmentCompleted {
		return nil, appErrors.Clone(appErrors.ErrGradeNotAllowed, "a grade can only accompany completion")
	}

	grade := roundGrade(req.Grade)
	if _, err := s.repo.Transition(ctx, current.ID, req.Status, grade); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			s.metrics.RecordTransition(OutcomeStaleState)
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment is no longer active")
		}
		return nil, appErrors.Internal(err, "failed to update enrollment")
	}
	if req.Status == models.EnrollmentCompleted {
		s.metrics.RecordTransition(OutcomeCompleted)
	} else {
		s.metrics.RecordTransition(OutcomeDropped)
	}
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, models.AuditActionEnrollmentTransition, "enrollment", current.ID,
		map[string]interface{}{"from": current.Status, "to": req.Status, "grade": grade})

	updated, err := s.repo.FindByID(ctx, current.ID)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	if s.notifier != nil {
		s.notifier.EnrollmentClosed(ctx, *updated)
	}
	return updated, nil
}

// SetGrade records an interim (ACTIVE) or final (COMPLETED) grade. DROPPED
// enrollments cannot be graded.
func (s *EnrollmentService) SetGrade(ctx context.Context, p authz.Principal, id string, req models.GradeRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req, "invalid grade payload"); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(p, authz.EnrollGrade, current.Owners()...); err != nil {
		return nil, err
	}
	if current.Status == models.EnrollmentDropped {
		return nil, appErrors.ErrGradeNotAllowed
	}

	grade := roundGrade(req.Grade)
	if _, err := s.repo.SetGrade(ctx, current.ID, *grade); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.ErrGradeNotAllowed
		}
		return nil, appErrors.Internal(err, "failed to record grade")
	}
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, models.AuditActionEnrollmentGrade, "enrollment", current.ID, map[string]float64{"grade": *grade})

	updated, err := s.repo.FindByID(ctx, current.ID)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	return updated, nil
}

// Get returns an enrollment visible to the caller.
func (s *EnrollmentService) Get(ctx context.Context, p authz.Principal, id string) (*models.EnrollmentDetail, error) {
	return s.load(ctx, p, id)
}

// List returns enrollments scoped to the caller: students see their own,
// teachers see their courses, admins see all.
func (s *EnrollmentService) List(ctx context.Context, p authz.Principal, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	switch {
	case authz.ScopeOf(p.Role, authz.EnrollListAll) == authz.ScopeAny:
	case p.Role == models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, p.UserID)
		if err != nil {
			return nil, nil, lookupError(err, "student profile")
		}
		filter.StudentID = student.ID
	case p.Role == models.RoleTeacher:
		instructor, err := s.instructors.FindByUserID(ctx, p.UserID)
		if err != nil {
			return nil, nil, lookupError(err, "instructor profile")
		}
		filter.InstructorID = instructor.ID
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Roster returns every enrollment of a course for its instructor or an admin.
func (s *EnrollmentService) Roster(ctx context.Context, p authz.Principal, courseRef string) (*models.CourseDetail, []models.RosterEntry, error) {
	course, err := s.courses.Resolve(ctx, courseRef)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Require(p, authz.CourseRoster, ownerOf(course)); err != nil {
		return nil, nil, err
	}
	roster, err := s.repo.ListRoster(ctx, course.ID)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load roster")
	}
	return course, roster, nil
}

func (s *EnrollmentService) load(ctx context.Context, p authz.Principal, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	if err := authz.Require(p, authz.EnrollRead, detail.Owners()...); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *EnrollmentService) resolveStudent(ctx context.Context, p authz.Principal, requested string) (*models.StudentDetail, error) {
	if p.Role == models.RoleStudent {
		own, err := s.students.FindByUserID(ctx, p.UserID)
		if err != nil {
			return nil, lookupError(err, "student profile")
		}
		if requested != "" && requested != own.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only enroll themselves")
		}
		return own, nil
	}
	if requested == "" {
		return nil, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"student_id": "student_id is required"})
	}
	student, err := s.students.FindByID(ctx, requested)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

func classifyEnrollError(err error) (string, error) {
	switch {
	case errors.Is(err, repository.ErrDuplicateEnrollment):
		return OutcomeDuplicate, appErrors.ErrDuplicateEnrollment
	case errors.Is(err, repository.ErrCourseFull):
		return OutcomeFull, appErrors.ErrCourseFull
	case errors.Is(err, repository.ErrCourseInactive):
		return OutcomeInactive, appErrors.ErrCourseInactive
	case errors.Is(err, repository.ErrStudentInactive):
		return OutcomeInactive, appErrors.ErrStudentInactive
	case errors.Is(err, repository.ErrCourseNotFound):
		return OutcomeNotFound, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	case errors.Is(err, repository.ErrStudentNotFound):
		return OutcomeNotFound, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return OutcomeFailed, appErrors.Internal(err, "failed to enroll")
}

// roundGrade keeps one decimal place.
func roundGrade(g *float64) *float64 {
	if g == nil {
		return nil
	}
	r := math.Round(*g*10) / 10
	return &r
}
