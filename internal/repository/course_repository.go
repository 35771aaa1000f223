package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courselab-api/internal/models"
)

const courseDetailSelect = `SELECT c.id, c.title, c.slug, c.description, c.duration_hours, c.instructor_id, c.level, c.max_students, c.price, c.active, c.created_at, c.updated_at,
        NULLIF(TRIM(u.first_name || ' ' || u.last_name), '') AS instructor_name,
        i.user_id AS instructor_user_id,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'ACTIVE') AS active_enrollments
        FROM courses c
        LEFT JOIN instructors i ON i.id = c.instructor_id
        LEFT JOIN users u ON u.id = i.user_id`

// CourseRepository persists catalog entries.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses with their live ACTIVE enrollment counts.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("c.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(c.description) LIKE $%d)", n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":      "c.title",
		"created_at": "c.created_at",
		"price":      "c.price",
		"duration":   "c.duration_hours",
	}
	orderBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", courseDetailSelect, where, orderBy, order, size, offset)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses c"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	return r.findOne(ctx, "c.id", id)
}

// FindBySlug returns a course by slug.
func (r *CourseRepository) FindBySlug(ctx context.Context, slug string) (*models.CourseDetail, error) {
	return r.findOne(ctx, "c.slug", slug)
}

func (r *CourseRepository) findOne(ctx context.Context, column, value string) (*models.CourseDetail, error) {
	query := fmt.Sprintf("%s WHERE %s = $1", courseDetailSelect, column)
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// SlugExists reports whether slug is used by a course other than excludeID.
func (r *CourseRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courses WHERE slug = $1 AND id::text <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, slug, excludeID); err != nil {
		return false, fmt.Errorf("check course slug: %w", err)
	}
	return exists, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	const query = `INSERT INTO courses (id, title, slug, description, duration_hours, instructor_id, level, max_students, price, active, created_at, updated_at)
        VALUES (:id, :title, :slug, :description, :duration_hours, :instructor_id, :level, :max_students, :price, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update stores a course. The row is locked and max_students is checked
// against the ACTIVE count under that lock, so capacity can never drop below
// the number of ACTIVE enrollments.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update course transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, course.ID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock course: %w", err)
	}
	var active int
	if err = tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'ACTIVE'`, course.ID); err != nil {
		return fmt.Errorf("count active enrollments: %w", err)
	}
	if course.MaxStudents < active {
		err = ErrCapacityBelowActive
		return err
	}

	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, slug = :slug, description = :description, duration_hours = :duration_hours,
        instructor_id = :instructor_id, level = :level, max_students = :max_students, price = :price, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, course); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateKey
			return err
		}
		return fmt.Errorf("update course: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update course: %w", err)
	}
	return nil
}

// SetActive toggles the course flag. Existing ACTIVE enrollments are kept.
func (r *CourseRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE courses SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set course active: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the course's enrollments and then the course in one
// transaction. Returns sql.ErrNoRows when the course does not exist.
func (r *CourseRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("delete course enrollments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if n, rowsErr := res.RowsAffected(); rowsErr == nil && n == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	return nil
}
