package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/validation"
)

type studentRepository interface {
	studentLookup
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	Update(ctx context.Context, student *models.Student) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// StudentService manages student profiles.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	audit     auditRecorder
	validator *validation.Validator
	logger    *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(repo studentRepository, cache *CacheService, audit auditRecorder, validate *validation.Validator, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns students for teachers and admins.
func (s *StudentService) List(ctx context.Context, p authz.Principal, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if authz.ScopeOf(p.Role, authz.StudentRead) != authz.ScopeAny {
		return nil, nil, appErrors.ErrForbidden
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, p authz.Principal, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	if err := authz.Require(p, authz.StudentRead, student.UserID); err != nil {
		return nil, err
	}
	return student, nil
}

// Me returns the caller's own student profile.
func (s *StudentService) Me(ctx context.Context, p authz.Principal) (*models.StudentDetail, error) {
	student, err := s.repo.FindByUserID(ctx, p.UserID)
	if err != nil {
		return nil, lookupError(err, "student profile")
	}
	return student, nil
}

// Update edits faculty, birth date and student number.
func (s *StudentService) Update(ctx context.Context, p authz.Principal, id string, req models.UpdateStudentRequest) (*models.StudentDetail, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	if err := authz.Require(p, authz.StudentUpdate, current.UserID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req, "invalid student payload"); err != nil {
		return nil, err
	}

	student := current.Student
	if req.Faculty != nil {
		student.Faculty = *req.Faculty
	}
	if req.BirthDate != nil {
		if strings.TrimSpace(*req.BirthDate) == "" {
			student.BirthDate = nil
		} else {
			bd, err := time.Parse("2006-01-02", *req.BirthDate)
			if err != nil {
				return nil, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"birth_date": "birth_date must be YYYY-MM-DD"})
			}
			if bd.After(time.Now()) {
				return nil, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"birth_date": "birth_date cannot be in the future"})
			}
			student.BirthDate = &bd
		}
	}
	if req.StudentNumber != nil {
		student.StudentNumber = strings.TrimSpace(*req.StudentNumber)
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Internal(err, "failed to update student")
	}
	s.cache.InvalidateDashboards(ctx)
	return s.Get(ctx, p, id)
}

// SetActive activates or deactivates a student. Existing enrollments stay.
func (s *StudentService) SetActive(ctx context.Context, p authz.Principal, id string, active bool) (*models.StudentDetail, error) {
	if err := authz.Require(p, authz.StudentDeactivate); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, lookupError(err, "student")
	}
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, models.AuditActionActiveToggle, "student", id, map[string]bool{"active": active})
	return s.Get(ctx, p, id)
}

// Delete removes the student profile and all of its enrollments.
func (s *StudentService) Delete(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Require(p, authz.StudentDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "student")
	}
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.audit, s.logger, p, models.AuditActionStudentDelete, "student", id, nil)
	return nil
}
