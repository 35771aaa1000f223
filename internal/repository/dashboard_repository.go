package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courselab-api/internal/dto"
	"github.com/noah-isme/courselab-api/internal/models"
)

// DashboardRepository runs the read-only aggregations behind role dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// AdminSummary counts active entities across the platform.
func (r *DashboardRepository) AdminSummary(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students WHERE active) AS active_students,
        (SELECT COUNT(*) FROM instructors WHERE active) AS active_instructors,
        (SELECT COUNT(*) FROM courses WHERE active) AS active_courses,
        (SELECT COUNT(*) FROM enrollments WHERE status = 'ACTIVE') AS active_enrollments,
        (SELECT COUNT(*) FROM courses) AS total_courses,
        (SELECT COUNT(*) FROM courses c WHERE c.max_students <= (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'ACTIVE')) AS full_courses`
	var summary dto.AdminDashboardResponse
	if err := r.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("admin dashboard summary: %w", err)
	}
	return &summary, nil
}

// TeacherCourses returns the instructor's courses with per-status counts.
func (r *DashboardRepository) TeacherCourses(ctx context.Context, instructorID string) ([]dto.TeacherCourseSummary, error) {
	const query = `SELECT c.id AS course_id, c.title, c.slug, c.active, c.max_students,
        COUNT(e.id) FILTER (WHERE e.status = 'ACTIVE') AS active_enrollments,
        COUNT(e.id) FILTER (WHERE e.status = 'COMPLETED') AS completed
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        WHERE c.instructor_id = $1
        GROUP BY c.id
        ORDER BY c.title`
	var courses []dto.TeacherCourseSummary
	if err := r.db.SelectContext(ctx, &courses, query, instructorID); err != nil {
		return nil, fmt.Errorf("teacher dashboard courses: %w", err)
	}
	return courses, nil
}

// StudentEnrollments returns every enrollment of a student, newest first.
func (r *DashboardRepository) StudentEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentDetailSelect+" WHERE e.student_id = $1 ORDER BY e.enrolled_at DESC", studentID); err != nil {
		return nil, fmt.Errorf("student dashboard enrollments: %w", err)
	}
	return enrollments, nil
}
