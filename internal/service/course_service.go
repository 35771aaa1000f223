package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/internal/repository"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/validation"
)

const maxSlugAttempts = 50

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
	FindBySlug(ctx context.Context, slug string) (*models.CourseDetail, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type instructorLookup interface {
	FindByID(ctx context.Context, id string) (*models.InstructorDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.InstructorDetail, error)
}

// CourseService manages the catalog.
type CourseService struct {
	repo        courseRepository
	instructors instructorLookup
	cache       *CacheService
	audit       auditRecorder
	validator   *validation.Validator
	logger      *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(repo courseRepository, instructors instructorLookup, cache *CacheService, audit auditRecorder, validate *validation.Validator, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, instructors: instructors, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns catalog entries with derived capacity fields.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseView, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	views := make([]models.CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, models.NewCourseView(c))
	}
	return views, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get looks a course up by id or slug.
func (s *CourseService) Get(ctx context.Context, ref string) (*models.CourseView, error) {
	course, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	view := models.NewCourseView(*course)
	return &view, nil
}

// Availability returns the capacity view of a course.
func (s *CourseService) Availability(ctx context.Context, ref string) (*models.CourseAvailability, error) {
	course, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	availability := course.Availability()
	return &availability, nil
}

// AvailableSlots is max_students minus ACTIVE enrollments, never negative.
func (s *CourseService) AvailableSlots(ctx context.Context, ref string) (int, error) {
	a, err := s.Availability(ctx, ref)
	if err != nil {
		return 0, err
	}
	return a.AvailableSlots, nil
}

// IsAvailable reports whether the course is active and has a free slot.
func (s *CourseService) IsAvailable(ctx context.Context, ref string) (bool, error) {
	a, err := s.Availability(ctx, ref)
	if err != nil {
		return false, err
	}
	return a.IsAvailable, nil
}

// Create adds a course. Teachers always own the courses they create.
func (s *CourseService) Create(ctx context.Context, p authz.Principal, req models.CreateCourseRequest) (*models.CourseView, error) {
	if err := authz.Require(p, authz.CourseCreate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req, "invalid course payload"); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"price": "price must be 0 or greater"})
	}

	instructorID, err := s.resolveInstructor(ctx, p, req.InstructorID)
	if err != nil {
		return nil, err
	}

	courseSlug, err := s.uniqueSlug(ctx, req.Slug, req.Title, "")
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:         strings.TrimSpace(req.Title),
		Slug:          courseSlug,
		Description:   req.Description,
		DurationHours: req.DurationHours,
		InstructorID:  instructorID,
		Level:         req.Level,
		MaxStudents:   req.MaxStudents,
		Price:         req.Price.Round(2),
		Active:        true,
	}
	if course.Level == "" {
		course.Level = models.LevelBeginner
	}
	if course.MaxStudents == 0 {
		course.MaxStudents = models.DefaultMaxStudents
	}
	if req.Active != nil {
		course.Active = *req.Active
	}

	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrConflict, "course slug already exists"), map[string]string{"slug": "slug is already in use"})
		}
		return nil, appErrors.Internal(err, "failed to create course")
	}
	s.afterWrite(ctx, p, models.AuditActionCourseCreate, course.ID, course)
	return s.Get(ctx, course.ID)
}

// Update patches a course. Lowering capacity below the ACTIVE count is a conflict.
func (s *CourseService) Update(ctx context.Context, p authz.Principal, ref string, req models.UpdateCourseRequest) (*models.CourseView, error) {
	current, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(p, authz.CourseUpdate, ownerOf(current)); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req, "invalid course payload"); err != nil {
		return nil, err
	}

	course := current.Course
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.DurationHours != nil {
		course.DurationHours = *req.DurationHours
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.MaxStudents != nil {
		course.MaxStudents = *req.MaxStudents
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"price": "price must be 0 or greater"})
		}
		course.Price = req.Price.Round(2)
	}
	if req.InstructorID != nil && (course.InstructorID == nil || *course.InstructorID != *req.InstructorID) {
		if p.Role != models.RoleAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only an admin can reassign a course")
		}
		if _, err := s.instructors.FindByID(ctx, *req.InstructorID); err != nil {
			return nil, lookupError(err, "instructor")
		}
		id := *req.InstructorID
		course.InstructorID = &id
	}
	if req.Slug != nil && *req.Slug != course.Slug {
		course.Slug, err = s.uniqueSlug(ctx, *req.Slug, course.Title, course.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &course); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityBelowActive):
			return nil, appErrors.WithFields(appErrors.ErrCapacityBelowEnrollment, map[string]string{
				"max_students": fmt.Sprintf("must be at least %d", current.ActiveEnrollments),
			})
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrConflict, "course slug already exists"), map[string]string{"slug": "slug is already in use"})
		}
		return nil, lookupError(err, "course")
	}
	s.afterWrite(ctx, p, models.AuditActionCourseUpdate, course.ID, req)
	return s.Get(ctx, course.ID)
}

// SetActive activates or deactivates a course. Deactivation blocks new
// enrollments and leaves ACTIVE ones untouched.
func (s *CourseService) SetActive(ctx context.Context, p authz.Principal, ref string, active bool) (*models.CourseView, error) {
	current, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(p, authz.CourseUpdate, ownerOf(current)); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, current.ID, active); err != nil {
		return nil, lookupError(err, "course")
	}
	s.afterWrite(ctx, p, models.AuditActionActiveToggle, current.ID, map[string]bool{"active": active})
	return s.Get(ctx, current.ID)
}

// Delete removes a course and its enrollments.
func (s *CourseService) Delete(ctx context.Context, p authz.Principal, ref string) error {
	if err := authz.Require(p, authz.CourseDelete); err != nil {
		return err
	}
	current, err := s.find(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, current.ID); err != nil {
		return lookupError(err, "course")
	}
	s.afterWrite(ctx, p, models.AuditActionCourseDelete, current.ID, map[string]string{"slug": current.Slug})
	return nil
}

// Resolve returns the course detail for ref, used by other services for
// ownership checks.
func (s *CourseService) Resolve(ctx context.Context, ref string) (*models.CourseDetail, error) {
	return s.find(ctx, ref)
}

func (s *CourseService) find(ctx context.Context, ref string) (*models.CourseDetail, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	var (
		course *models.CourseDetail
		err    error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		course, err = s.repo.FindByID(ctx, ref)
	} else {
		course, err = s.repo.FindBySlug(ctx, ref)
	}
	if err != nil {
		return nil, lookupError(err, "course")
	}
	return course, nil
}

func (s *CourseService) resolveInstructor(ctx context.Context, p authz.Principal, requested *string) (*string, error) {
	if p.Role == models.RoleTeacher {
		own, err := s.instructors.FindByUserID(ctx, p.UserID)
		if err != nil {
			return nil, lookupError(err, "instructor profile")
		}
		if requested != nil && *requested != own.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers can only create their own courses")
		}
		id := own.ID
		return &id, nil
	}
	if requested == nil {
		return nil, nil
	}
	if _, err := s.instructors.FindByID(ctx, *requested); err != nil {
		if appErrors.IsNotFound(lookupError(err, "instructor")) {
			return nil, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"instructor_id": "instructor does not exist"})
		}
		return nil, appErrors.Internal(err, "failed to load instructor")
	}
	id := *requested
	return &id, nil
}

// uniqueSlug returns the slugified explicit slug, which must be free, or
// derives one from the title and appends -2, -3, ... until no other course
// uses it.
func (s *CourseService) uniqueSlug(ctx context.Context, explicit, title, excludeID string) (string, error) {
	if base := slug.Make(explicit); base != "" {
		exists, err := s.repo.SlugExists(ctx, base, excludeID)
		if err != nil {
			return "", appErrors.Internal(err, "failed to check slug")
		}
		if exists {
			return "", slugConflict()
		}
		return base, nil
	}

	base := slug.Make(title)
	if base == "" {
		base = "course"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", appErrors.Internal(err, "failed to check slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", slugConflict()
}

func slugConflict() error {
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrConflict, "slug already in use"), map[string]string{"slug": "a course with this slug already exists"})
}

func (s *CourseService) afterWrite(ctx context.Context, p authz.Principal, action, courseID string, values interface{}) {
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, action, "course", courseID, values)
}

func ownerOf(c *models.CourseDetail) string {
	if c == nil || c.InstructorUserID == nil {
		return ""
	}
	return *c.InstructorUserID
}
