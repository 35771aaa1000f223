package models

import "time"

// Instructor is the profile attached to a TEACHER account.
type Instructor struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Specialization string    `db:"specialization" json:"specialization"`
	Degree         string    `db:"degree" json:"degree"`
	Bio            string    `db:"bio" json:"bio"`
	Office         string    `db:"office" json:"office"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorDetail joins the profile with its account identity.
type InstructorDetail struct {
	Instructor
	Username  string `db:"username" json:"username"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// FullName returns "First Last".
func (i InstructorDetail) FullName() string {
	return User{FirstName: i.FirstName, LastName: i.LastName, Username: i.Username}.FullName()
}

// InstructorFilter captures list filters for instructors.
type InstructorFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// UpdateInstructorRequest edits instructor profile fields.
type UpdateInstructorRequest struct {
	Specialization *string `json:"specialization" validate:"omitempty,min=1,max=200"`
	Degree         *string `json:"degree" validate:"omitempty,max=100"`
	Bio            *string `json:"bio" validate:"omitempty,max=2000"`
	Office         *string `json:"office" validate:"omitempty,max=50"`
}
