package dto

import "github.com/noah-isme/courselab-api/internal/models"

// StudentDashboardResponse is the student's own view.
type StudentDashboardResponse struct {
	Profile      models.StudentDetail      `json:"profile"`
	Enrollments  []models.EnrollmentDetail `json:"enrollments"`
	Summary      EnrollmentStatusSummary   `json:"summary"`
	AverageGrade *float64                  `json:"average_grade,omitempty"`
}

// EnrollmentStatusSummary counts enrollments per status.
type EnrollmentStatusSummary struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Dropped   int `json:"dropped"`
}

// TeacherDashboardResponse lists the courses owned by the instructor.
type TeacherDashboardResponse struct {
	Profile models.InstructorDetail `json:"profile"`
	Courses []TeacherCourseSummary  `json:"courses"`
	Totals  TeacherTotals           `json:"totals"`
}

// TeacherCourseSummary is one owned course with its capacity signals.
type TeacherCourseSummary struct {
	CourseID          string `json:"course_id" db:"course_id"`
	Title             string `json:"title" db:"title"`
	Slug              string `json:"slug" db:"slug"`
	Active            bool   `json:"active" db:"active"`
	MaxStudents       int    `json:"max_students" db:"max_students"`
	ActiveEnrollments int    `json:"active_enrollments" db:"active_enrollments"`
	Completed         int    `json:"completed" db:"completed"`
	AvailableSlots    int    `json:"available_slots" db:"-"`
}

// TeacherTotals aggregates across owned courses.
type TeacherTotals struct {
	Courses        int `json:"courses"`
	ActiveStudents int `json:"active_students"`
}

// AdminDashboardResponse holds platform-wide counts.
type AdminDashboardResponse struct {
	ActiveStudents    int `json:"active_students" db:"active_students"`
	ActiveInstructors int `json:"active_instructors" db:"active_instructors"`
	ActiveCourses     int `json:"active_courses" db:"active_courses"`
	ActiveEnrollments int `json:"active_enrollments" db:"active_enrollments"`
	TotalCourses      int `json:"total_courses" db:"total_courses"`
	FullCourses       int `json:"full_courses" db:"full_courses"`
}
