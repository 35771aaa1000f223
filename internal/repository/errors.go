package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors returned by transactional repository operations. Services
// translate them into API errors.
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrStudentNotFound     = errors.New("student not found")
	ErrCourseInactive      = errors.New("course inactive")
	ErrStudentInactive     = errors.New("student inactive")
	ErrDuplicateEnrollment = errors.New("duplicate enrollment")
	ErrCourseFull          = errors.New("course full")
	ErrStaleStatus         = errors.New("enrollment status changed")
	ErrCapacityBelowActive = errors.New("capacity below active enrollments")
	ErrDuplicateKey        = errors.New("duplicate key")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}
