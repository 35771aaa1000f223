package models

import "time"

// Faculty is the study programme a student belongs to.
type Faculty string

const (
	FacultyCyberSecurity Faculty = "CS"
	FacultySoftwareEng   Faculty = "SE"
	FacultyInfoTech      Faculty = "IT"
	FacultyDataScience   Faculty = "DS"
	FacultyWeb           Faculty = "WEB"
)

// Student is the profile attached to a STUDENT account.
type Student struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	Faculty       Faculty    `db:"faculty" json:"faculty"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	StudentNumber string     `db:"student_number" json:"student_number"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the profile with its account identity.
type StudentDetail struct {
	Student
	Username  string `db:"username" json:"username"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// FullName returns "First Last".
func (s StudentDetail) FullName() string {
	return User{FirstName: s.FirstName, LastName: s.LastName, Username: s.Username}.FullName()
}

// StudentFilter captures list filters for students.
type StudentFilter struct {
	Faculty   Faculty
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UpdateStudentRequest edits student profile fields.
type UpdateStudentRequest struct {
	Faculty       *Faculty `json:"faculty" validate:"omitempty,oneof=CS SE IT DS WEB"`
	BirthDate     *string  `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	StudentNumber *string  `json:"student_number" validate:"omitempty,max=20"`
}
