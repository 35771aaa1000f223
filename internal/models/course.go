package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CourseLevel grades course difficulty.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "BEGINNER"
	LevelIntermediate CourseLevel = "INTERMEDIATE"
	LevelAdvanced     CourseLevel = "ADVANCED"
)

// Course bounds.
const (
	DefaultMaxStudents = 30
	MinMaxStudents     = 1
	MaxMaxStudents     = 100
	MinDurationHours   = 1
	MaxDurationHours   = 500
)

// Course is a catalog entry with a capacity.
type Course struct {
	ID            string          `db:"id" json:"id"`
	Title         string          `db:"title" json:"title"`
	Slug          string          `db:"slug" json:"slug"`
	Description   string          `db:"description" json:"description"`
	DurationHours int             `db:"duration_hours" json:"duration_hours"`
	InstructorID  *string         `db:"instructor_id" json:"instructor_id,omitempty"`
	Level         CourseLevel     `db:"level" json:"level"`
	MaxStudents   int             `db:"max_students" json:"max_students"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Active        bool            `db:"active" json:"active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CourseDetail adds the instructor name and the live ACTIVE enrollment count.
type CourseDetail struct {
	Course
	InstructorName    *string `db:"instructor_name" json:"instructor_name,omitempty"`
	InstructorUserID  *string `db:"instructor_user_id" json:"-"`
	ActiveEnrollments int     `db:"active_enrollments" json:"active_enrollments"`
}

// AvailableSlots is max_students minus ACTIVE enrollments, never negative.
func (c CourseDetail) AvailableSlots() int {
	return availableSlots(c.MaxStudents, c.ActiveEnrollments)
}

// IsAvailable reports whether a new enrollment could be accepted.
func (c CourseDetail) IsAvailable() bool {
	return c.Active && c.AvailableSlots() > 0
}

// Availability projects the capacity view of the course.
func (c CourseDetail) Availability() CourseAvailability {
	return CourseAvailability{
		CourseID:          c.ID,
		MaxStudents:       c.MaxStudents,
		ActiveEnrollments: c.ActiveEnrollments,
		AvailableSlots:    c.AvailableSlots(),
		IsAvailable:       c.IsAvailable(),
	}
}

func availableSlots(capacity, active int) int {
	if slots := capacity - active; slots > 0 {
		return slots
	}
	return 0
}

// CourseAvailability is the capacity read model.
type CourseAvailability struct {
	CourseID          string `json:"course_id"`
	MaxStudents       int    `json:"max_students"`
	ActiveEnrollments int    `json:"active_enrollments"`
	AvailableSlots    int    `json:"available_slots"`
	IsAvailable       bool   `json:"is_available"`
}

// CourseView is the API shape of a course including derived capacity.
type CourseView struct {
	CourseDetail
	AvailableSlots int  `json:"available_slots"`
	IsAvailable    bool `json:"is_available"`
}

// NewCourseView wraps a detail with its derived fields.
func NewCourseView(d CourseDetail) CourseView {
	return CourseView{CourseDetail: d, AvailableSlots: d.AvailableSlots(), IsAvailable: d.IsAvailable()}
}

// CourseFilter captures list filters for the catalog.
type CourseFilter struct {
	Level        CourseLevel
	Active       *bool
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// CreateCourseRequest creates a course. Teachers may omit InstructorID.
type CreateCourseRequest struct {
	Title         string          `json:"title" validate:"required,trimmed_min=1,max=200"`
	Slug          string          `json:"slug" validate:"omitempty,max=220"`
	Description   string          `json:"description" validate:"required"`
	DurationHours int             `json:"duration_hours" validate:"required,min=1,max=500"`
	InstructorID  *string         `json:"instructor_id" validate:"omitempty,uuid"`
	Level         CourseLevel     `json:"level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	MaxStudents   int             `json:"max_students" validate:"omitempty,min=1,max=100"`
	Price         decimal.Decimal `json:"price"`
	Active        *bool           `json:"active"`
}

// UpdateCourseRequest patches a course.
type UpdateCourseRequest struct {
	Title         *string          `json:"title" validate:"omitempty,trimmed_min=1,max=200"`
	Slug          *string          `json:"slug" validate:"omitempty,max=220"`
	Description   *string          `json:"description" validate:"omitempty,min=1"`
	DurationHours *int             `json:"duration_hours" validate:"omitempty,min=1,max=500"`
	InstructorID  *string          `json:"instructor_id" validate:"omitempty,uuid"`
	Level         *CourseLevel     `json:"level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	MaxStudents   *int             `json:"max_students" validate:"omitempty,min=1,max=100"`
	Price         *decimal.Decimal `json:"price"`
}
