package models

import "time"

// Feedback is a contact-form submission.
type Feedback struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Subject   string    `db:"subject" json:"subject"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateFeedbackRequest is the public contact payload.
type CreateFeedbackRequest struct {
	Name    string `json:"name" validate:"required,trimmed_min=2,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,trimmed_min=1,max=200"`
	Message string `json:"message" validate:"required,trimmed_min=10"`
}
