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

type feedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	List(ctx context.Context, page, pageSize int) ([]models.Feedback, int, error)
}

type feedbackNotifier interface {
	FeedbackReceived(ctx context.Context, fb models.Feedback)
}

// FeedbackService stores contact form submissions.
type FeedbackService struct {
	repo      feedbackRepository
	notifier  feedbackNotifier
	validator *validation.Validator
	logger    *zap.Logger
}

// NewFeedbackService constructs the service.
func NewFeedbackService(repo feedbackRepository, notifier feedbackNotifier, validate *validation.Validator, logger *zap.Logger) *FeedbackService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Submit validates and stores a submission, then notifies the admin mailbox.
func (s *FeedbackService) Submit(ctx context.Context, req models.CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req, "invalid feedback payload"); err != nil {
		return nil, err
	}
	fb := &models.Feedback{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		return nil, appErrors.Internal(err, "failed to store feedback")
	}
	if s.notifier != nil {
		s.notifier.FeedbackReceived(ctx, *fb)
	}
	return fb, nil
}

// List returns submissions, newest first, for admins.
func (s *FeedbackService) List(ctx context.Context, p authz.Principal, page, pageSize int) ([]models.Feedback, *models.Pagination, error) {
	if err := authz.Require(p, authz.FeedbackList); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list feedback")
	}
	return items, models.NewPagination(page, pageSize, total), nil
}
