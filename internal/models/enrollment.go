package models

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
)

// Grade bounds on the 0..5 scale with one decimal.
const (
	GradeMin = 0.0
	GradeMax = 5.0
)

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentCompleted, EnrollmentDropped:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentCompleted || s == EnrollmentDropped
}

// CanTransitionTo reports whether s -> next is a legal move.
// Only ACTIVE -> COMPLETED and ACTIVE -> DROPPED are allowed.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	return s == EnrollmentActive && (next == EnrollmentCompleted || next == EnrollmentDropped)
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	Grade       *float64         `db:"grade" json:"grade,omitempty"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches an enrollment with display names and the owner
// identifiers used for authorization.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string  `db:"student_name" json:"student_name"`
	StudentEmail     string  `db:"student_email" json:"student_email"`
	CourseTitle      string  `db:"course_title" json:"course_title"`
	CourseSlug       string  `db:"course_slug" json:"course_slug"`
	StudentUserID    string  `db:"student_user_id" json:"-"`
	InstructorUserID *string `db:"instructor_user_id" json:"-"`
}

// Owners returns the user ids with an ownership claim on the enrollment.
func (e EnrollmentDetail) Owners() []string {
	owners := []string{e.StudentUserID}
	if e.InstructorUserID != nil {
		owners = append(owners, *e.InstructorUserID)
	}
	return owners
}

// EnrollmentFilter scopes enrollment listings.
type EnrollmentFilter struct {
	StudentID    string
	CourseID     string
	InstructorID string
	Status       EnrollmentStatus
	Page         int
	PageSize     int
}

// EnrollRequest asks to enroll a student in a course. Students omit
// StudentID and enroll themselves.
type EnrollRequest struct {
	CourseID  string `json:"course_id" validate:"required,uuid"`
	StudentID string `json:"student_id" validate:"omitempty,uuid"`
}

// TransitionRequest moves an enrollment to a terminal status.
type TransitionRequest struct {
	Status EnrollmentStatus `json:"status" validate:"required,oneof=COMPLETED DROPPED ACTIVE"`
	Grade  *float64         `json:"grade" validate:"omitempty,gte=0,lte=5"`
}

// GradeRequest sets the grade of an enrollment.
type GradeRequest struct {
	Grade *float64 `json:"grade" validate:"required,gte=0,lte=5"`
}

// RosterEntry is one line of a course roster.
type RosterEntry struct {
	EnrollmentID  string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	StudentNumber string           `db:"student_number" json:"student_number"`
	FirstName     string           `db:"first_name" json:"first_name"`
	LastName      string           `db:"last_name" json:"last_name"`
	Email         string           `db:"email" json:"email"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	Grade         *float64         `db:"grade" json:"grade,omitempty"`
	EnrolledAt    time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt   *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}
