package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrCourseFull, "course go-101 is full")
	assert.True(t, errors.Is(err, ErrCourseFull))
	assert.False(t, errors.Is(err, ErrDuplicateEnrollment))
	assert.Equal(t, "course go-101 is full", err.Error())
}

func TestCategories(t *testing.T) {
	assert.True(t, IsState(ErrInvalidTransition))
	assert.True(t, IsState(fmt.Errorf("wrapped: %w", ErrCourseInactive)))
	assert.True(t, IsConflict(ErrDuplicateEnrollment))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(ErrCacheMiss))
	assert.False(t, IsState(errors.New("plain")))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Nil(t, FromError(nil))

	fielded := WithFields(ErrValidation, map[string]string{"email": "email is required"})
	assert.Equal(t, "email is required", FromError(fielded).Fields["email"])
	assert.Nil(t, ErrValidation.Fields)
}
