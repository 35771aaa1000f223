package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courselab-api/internal/models"
)

func TestCourseUpdateRejectsCapacityBelowActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM courses WHERE id = $1 FOR UPDATE")).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("course-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'ACTIVE'")).WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Course{ID: "course-1", MaxStudents: 2, Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrCapacityBelowActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascadesEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE course_id = $1")).WithArgs("course-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).WithArgs("course-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "course-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE course_id = $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentDeleteCascadesEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1")).WithArgs("stu-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).WithArgs("stu-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "stu-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorDeleteNullsCourseOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET instructor_id = NULL")).WithArgs("ins-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM instructors WHERE id = $1")).WithArgs("ins-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "ins-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseFindBySlugCarriesActiveCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "slug", "description", "duration_hours", "instructor_id", "level", "max_students", "price", "active", "created_at", "updated_at", "instructor_name", "instructor_user_id", "active_enrollments"}).
		AddRow("course-1", "Go 101", "go-101", "intro", 10, nil, "BEGINNER", 1, "49.99", true, now, now, nil, nil, 1)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.slug = $1")).WithArgs("go-101").WillReturnRows(rows)

	course, err := repo.FindBySlug(context.Background(), "go-101")
	require.NoError(t, err)
	assert.Equal(t, 0, course.AvailableSlots())
	assert.False(t, course.IsAvailable())
	assert.True(t, decimal.RequireFromString("49.99").Equal(course.Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}
