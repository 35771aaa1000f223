package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courselab-api/internal/models"
)

const (
	lockCourseSQL    = "SELECT active, max_students FROM courses WHERE id = $1 FOR UPDATE"
	loadStudentSQL   = "SELECT active FROM students WHERE id = $1 FOR SHARE"
	existsPairSQL    = "SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)"
	countActiveSQL   = "SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'ACTIVE'"
	insertEnrollment = "INSERT INTO enrollments"
)

func expectEnrollChecks(mock sqlmock.Sqlmock, capacity, active int, duplicate bool) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "max_students"}).AddRow(true, capacity))
	mock.ExpectQuery(regexp.QuoteMeta(loadStudentSQL)).WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"active"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(existsPairSQL)).WithArgs("stu-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(duplicate))
	if duplicate {
		return
	}
	mock.ExpectQuery(regexp.QuoteMeta(countActiveSQL)).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(active))
}

func TestEnrollInsertsActiveEnrollment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	expectEnrollChecks(mock, 1, 0, false)
	mock.ExpectExec(insertEnrollment).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrollment, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollLocksCourseRowBeforeCounting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	mock.MatchExpectationsInOrder(true)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`^SELECT active, max_students FROM courses WHERE id = \$1 FOR UPDATE$`).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "max_students"}).AddRow(true, 2))
	mock.ExpectQuery(regexp.QuoteMeta(loadStudentSQL)).WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"active"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(existsPairSQL)).WithArgs("stu-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(countActiveSQL)).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(insertEnrollment).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollStopsWhenCourseLockFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WithArgs("course-1").
		WillReturnError(&pq.Error{Code: "55P03", Message: "could not obtain lock on row"})
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock course")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollRejectsFullCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	expectEnrollChecks(mock, 1, 1, false)
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	assert.ErrorIs(t, err, ErrCourseFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollRejectsDuplicatePair(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	expectEnrollChecks(mock, 5, 0, true)
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollMapsUniqueViolationToDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	expectEnrollChecks(mock, 5, 0, false)
	mock.ExpectExec(insertEnrollment).WillReturnError(&pq.Error{Code: "23505", Constraint: "enrollments_student_course_key"})
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollRejectsInactiveCourseBeforeStudentChecks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "max_students"}).AddRow(false, 10))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	assert.ErrorIs(t, err, ErrCourseInactive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollRejectsInactiveStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "max_students"}).AddRow(true, 10))
	mock.ExpectQuery(regexp.QuoteMeta(loadStudentSQL)).WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"active"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "stu-1", "course-1")
	assert.ErrorIs(t, err, ErrStudentInactive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionCompletesWithGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	grade := 4.5
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "grade", "enrolled_at", "completed_at", "updated_at"}).
		AddRow("enr-1", "stu-1", "course-1", "COMPLETED", 4.5, fixed.Add(-time.Hour), fixed, fixed)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'ACTIVE' RETURNING")).
		WithArgs("enr-1", models.EnrollmentCompleted, &grade, &fixed, fixed).
		WillReturnRows(rows)

	enrollment, err := repo.Transition(context.Background(), "enr-1", models.EnrollmentCompleted, &grade)
	require.NoError(t, err)
	require.NotNil(t, enrollment.Grade)
	assert.Equal(t, 4.5, *enrollment.Grade)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, fixed.Equal(*enrollment.CompletedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStaleStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'ACTIVE' RETURNING")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Transition(context.Background(), "enr-1", models.EnrollmentDropped, nil)
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
