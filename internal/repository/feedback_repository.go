package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courselab-api/internal/models"
)

// FeedbackRepository stores contact form submissions.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a feedback entry.
func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feedback (id, name, email, subject, message, created_at) VALUES (:id, :name, :email, :subject, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fb); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// List returns feedback newest first.
func (r *FeedbackRepository) List(ctx context.Context, page, pageSize int) ([]models.Feedback, int, error) {
	_, size, offset := normalizePage(page, pageSize)
	query := fmt.Sprintf(`SELECT id, name, email, subject, message, created_at FROM feedback ORDER BY created_at DESC LIMIT %d OFFSET %d`, size, offset)
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM feedback`); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}
	return items, total, nil
}
