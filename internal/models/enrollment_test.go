package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentTransitions(t *testing.T) {
	all := []EnrollmentStatus{EnrollmentActive, EnrollmentCompleted, EnrollmentDropped}
	allowed := map[[2]EnrollmentStatus]bool{
		{EnrollmentActive, EnrollmentCompleted}: true,
		{EnrollmentActive, EnrollmentDropped}:   true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]EnrollmentStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, EnrollmentActive.Terminal())
	assert.True(t, EnrollmentCompleted.Terminal())
	assert.True(t, EnrollmentDropped.Terminal())
	assert.False(t, EnrollmentStatus("PAUSED").Valid())
}

func TestEnrollmentOwners(t *testing.T) {
	teacher := "u-teacher"
	d := EnrollmentDetail{StudentUserID: "u-student", InstructorUserID: &teacher}
	assert.Equal(t, []string{"u-student", "u-teacher"}, d.Owners())

	d.InstructorUserID = nil
	assert.Equal(t, []string{"u-student"}, d.Owners())
}
