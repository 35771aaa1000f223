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

const enrollmentColumns = `id, student_id, course_id, status, grade, enrolled_at, completed_at, updated_at`

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_id, e.status, e.grade, e.enrolled_at, e.completed_at, e.updated_at,
        TRIM(su.first_name || ' ' || su.last_name) AS student_name, su.email AS student_email,
        c.title AS course_title, c.slug AS course_slug,
        s.user_id AS student_user_id, i.user_id AS instructor_user_id
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN users su ON su.id = s.user_id
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN instructors i ON i.id = c.instructor_id`

// EnrollmentRepository is the ledger of enrollments.
type EnrollmentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, now: time.Now}
}

// Enroll inserts an ACTIVE enrollment after checking, in order: the course
// exists and is active, the student exists and is active, the pair is not
// enrolled yet, and the course has room. The course row is locked FOR UPDATE
// so concurrent enrollments into the same course serialize on the capacity
// check. A unique violation on insert still maps to ErrDuplicateEnrollment.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID string) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enroll transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var course struct {
		Active      bool `db:"active"`
		MaxStudents int  `db:"max_students"`
	}
	if err = tx.GetContext(ctx, &course, `SELECT active, max_students FROM courses WHERE id = $1 FOR UPDATE`, courseID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrCourseNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}
	if !course.Active {
		err = ErrCourseInactive
		return nil, err
	}

	var studentActive bool
	if err = tx.GetContext(ctx, &studentActive, `SELECT active FROM students WHERE id = $1 FOR SHARE`, studentID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrStudentNotFound
			return nil, err
		}
		return nil, fmt.Errorf("load student: %w", err)
	}
	if !studentActive {
		err = ErrStudentInactive
		return nil, err
	}

	var exists bool
	if err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`, studentID, courseID); err != nil {
		return nil, fmt.Errorf("check existing enrollment: %w", err)
	}
	if exists {
		err = ErrDuplicateEnrollment
		return nil, err
	}

	var active int
	if err = tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'ACTIVE'`, courseID); err != nil {
		return nil, fmt.Errorf("count active enrollments: %w", err)
	}
	if active >= course.MaxStudents {
		err = ErrCourseFull
		return nil, err
	}

	now := r.now().UTC()
	enrollment = &models.Enrollment{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     models.EnrollmentActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	const insert = `INSERT INTO enrollments (id, student_id, course_id, status, grade, enrolled_at, completed_at, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :grade, :enrolled_at, :completed_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateEnrollment
			return nil, err
		}
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}
	return enrollment, nil
}

// Transition moves an ACTIVE enrollment to status. completed_at is only set
// the first time and grade is only overwritten when provided. Returns
// ErrStaleStatus when the row is no longer ACTIVE.
func (r *EnrollmentRepository) Transition(ctx context.Context, id string, status models.EnrollmentStatus, grade *float64) (*models.Enrollment, error) {
	now := r.now().UTC()
	var completedAt *time.Time
	if status == models.EnrollmentCompleted {
		completedAt = &now
	}
	query := `UPDATE enrollments SET status = $2, grade = COALESCE($3, grade), completed_at = COALESCE(completed_at, $4), updated_at = $5
        WHERE id = $1 AND status = 'ACTIVE' RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, status, grade, completedAt, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStaleStatus
		}
		return nil, fmt.Errorf("transition enrollment: %w", err)
	}
	return &enrollment, nil
}

// SetGrade records a grade on an enrollment that is not DROPPED. Returns
// ErrStaleStatus when the row is DROPPED or missing.
func (r *EnrollmentRepository) SetGrade(ctx context.Context, id string, grade float64) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET grade = $2, updated_at = $3 WHERE id = $1 AND status <> 'DROPPED' RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, grade, r.now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStaleStatus
		}
		return nil, fmt.Errorf("set enrollment grade: %w", err)
	}
	return &enrollment, nil
}

// FindByID returns an enrollment with its display and ownership fields.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, enrollmentDetailSelect+" WHERE e.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &detail, nil
}

// List returns enrollments filtered by student, course, instructor or status.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d", enrollmentDetailSelect, where, size, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments e JOIN courses c ON c.id = e.course_id" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListRoster returns every enrollment of a course ordered by last name.
func (r *EnrollmentRepository) ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, s.id AS student_id, s.student_number, u.first_name, u.last_name, u.email,
        e.status, e.grade, e.enrolled_at, e.completed_at
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN users u ON u.id = s.user_id
        WHERE e.course_id = $1
        ORDER BY u.last_name, u.first_name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}
