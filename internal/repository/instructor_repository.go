package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courselab-api/internal/models"
)

const instructorDetailSelect = `SELECT i.id, i.user_id, i.specialization, i.degree, i.bio, i.office, i.active, i.created_at, i.updated_at,
        u.username, u.email, u.first_name, u.last_name
        FROM instructors i JOIN users u ON u.id = i.user_id`

// InstructorRepository manages instructor profiles.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructor profiles with total count.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("i.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.first_name || ' ' || u.last_name) LIKE $%d OR LOWER(i.specialization) LIKE $%d)", n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY u.last_name ASC LIMIT %d OFFSET %d", instructorDetailSelect, where, size, offset)
	var instructors []models.InstructorDetail
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM instructors i JOIN users u ON u.id = i.user_id"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}
	return instructors, total, nil
}

// FindByID returns an instructor profile by id.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.InstructorDetail, error) {
	return r.findOne(ctx, "i.id", id)
}

// FindByUserID returns the instructor profile owned by an account.
func (r *InstructorRepository) FindByUserID(ctx context.Context, userID string) (*models.InstructorDetail, error) {
	return r.findOne(ctx, "i.user_id", userID)
}

func (r *InstructorRepository) findOne(ctx context.Context, column, value string) (*models.InstructorDetail, error) {
	query := fmt.Sprintf("%s WHERE %s = $1", instructorDetailSelect, column)
	var instructor models.InstructorDetail
	if err := r.db.GetContext(ctx, &instructor, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find instructor: %w", err)
	}
	return &instructor, nil
}

// Update stores the editable profile fields.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	instructor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE instructors SET specialization = :specialization, degree = :degree, bio = :bio, office = :office, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("update instructor: %w", err)
	}
	return nil
}

// SetActive toggles the instructor flag.
func (r *InstructorRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE instructors SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set instructor active: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete detaches the instructor from their courses (instructor_id becomes
// NULL) and removes the profile, in one transaction. Courses and their
// enrollments survive. Returns sql.ErrNoRows when the instructor is missing.
func (r *InstructorRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete instructor transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE courses SET instructor_id = NULL, updated_at = $2 WHERE instructor_id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("detach instructor courses: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM instructors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete instructor: %w", err)
	}
	if n, rowsErr := res.RowsAffected(); rowsErr == nil && n == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete instructor: %w", err)
	}
	return nil
}
