package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/internal/repository"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/validation"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Taken(ctx context.Context, username, email, excludeID string) (bool, bool, error)
	UpdateAccount(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles account management.
type UserService struct {
	repo      userRepository
	cache     *CacheService
	validator *validation.Validator
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, cache *CacheService, validate *validation.Validator, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &UserService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns paginated accounts for admins.
func (s *UserService) List(ctx context.Context, p authz.Principal, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if err := authz.Require(p, authz.UserList); err != nil {
		return nil, nil, err
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an account; non-admins can only read their own.
func (s *UserService) Get(ctx context.Context, p authz.Principal, id string) (*models.User, error) {
	if p.UserID != id {
		if err := authz.Require(p, authz.UserManage); err != nil {
			return nil, err
		}
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return user, nil
}

// UpdateAccount edits name, email, phone and bio.
func (s *UserService) UpdateAccount(ctx context.Context, p authz.Principal, id string, req models.UpdateAccountRequest) (*models.User, error) {
	user, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req, "invalid account payload"); err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != strings.ToLower(user.Email) {
			_, emailTaken, err := s.repo.Taken(ctx, "", email, user.ID)
			if err != nil {
				return nil, appErrors.Internal(err, "failed to check email")
			}
			if emailTaken {
				return nil, emailConflict()
			}
		}
		user.Email = email
	}

	if err := s.repo.UpdateAccount(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, emailConflict()
		}
		return nil, appErrors.Internal(err, "failed to update user")
	}
	s.cache.InvalidateDashboards(ctx)
	return user, nil
}

// SetActive enables or disables an account. Disabling revokes its sessions.
func (s *UserService) SetActive(ctx context.Context, p authz.Principal, id string, active bool) (*models.User, error) {
	if err := authz.Require(p, authz.UserManage); err != nil {
		return nil, err
	}
	if !active && id == p.UserID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you cannot deactivate your own account")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, lookupError(err, "user")
	}
	if !active {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated user", zap.String("user_id", id), zap.Error(err))
		}
	}
	s.cache.InvalidateDashboards(ctx)
	recordAudit(ctx, s.repo, s.logger, p, models.AuditActionActiveToggle, "user", id, map[string]bool{"active": active})
	return s.Get(ctx, p, id)
}

func emailConflict() error {
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrConflict, "email already in use"), map[string]string{"email": "email is already registered"})
}
