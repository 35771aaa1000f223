package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/validation"
)

type instructorRepository interface {
	instructorLookup
	List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorDetail, int, error)
	Update(ctx context.Context, instructor *models.Instructor) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// InstructorService manages instructor profiles.
type InstructorService struct {
	repo      instructorRepository
	cache     *CacheService
	audit     auditRecorder
	validator *validation.Validator
	logger    *zap.Logger
}

// NewInstructorService constructs the service.
func NewInstructorService(repo instructorRepository, cache *CacheService, audit auditRecorder, validate *validation.Validator, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns instructors. The directory is public to signed-in users.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list instructors")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single instructor.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.InstructorDetail, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "instructor")
	}
	return item, nil
}

// Me returns the caller's own instructor profile.
func (s *InstructorService) Me(ctx context.Context, p authz.Principal) (*models.InstructorDetail, error) {
	item, err := s.repo.FindByUserID(ctx, p.UserID)
	if err != nil {
		return nil, lookupError(err, "instructor profile")
	}
	return item, nil
}

// Update edits the profile; teachers may only edit their own.
func (s *InstructorService) Update(ctx context.Context, p authz.Principal, id string, req models.UpdateInstructorRequest) (*models.InstructorDetail, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(p, authz.InstructorUpdate, current.UserID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req, "invalid instructor payload"); err != nil {
		return nil, err
	}

	instructor := current.Instructor
	if req.Specialization != nil {
		instructor.Specialization = strings.TrimSpace(*req.Specialization)
	}
	if req.Degree != nil {
		instructor.Degree = strings.TrimSpace(*req.Degree)
	}
	if req.Bio != nil {
		instructor.Bio = *req.Bio
	}
	if req.Office != nil {
		instructor.Office = strings.TrimSpace(*req.Office)
	}
	if err := s.repo.Update(ctx, &instructor); err != nil {
		return nil, appErrors.Internal(err, "failed to update instructor")
	}
	s.cache.InvalidateDashboards(ctx)
	return s.Get(ctx, id)
}

// SetActive toggles the instructor flag. Owned courses are untouched.
func (s *InstructorService) SetActive(ctx context.Context, p authz.Principal, id string, active bool) (*models.InstructorDetail, error) {
	if err := authz.Require(p, authz.InstructorDeactivate); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, lookupError(err, "instructor")
	}
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, models.AuditActionActiveToggle, "instructor", id, map[string]bool{"active": active})
	return s.Get(ctx, id)
}

// Delete removes the instructor; their courses stay without an instructor.
func (s *InstructorService) Delete(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Require(p, authz.InstructorDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "instructor")
	}
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, models.AuditActionInstructorDelete, "instructor", id, nil)
	return nil
}
