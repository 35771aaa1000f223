package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailableSlotsNeverNegative(t *testing.T) {
	cases := []struct {
		capacity, active, want int
	}{
		{30, 0, 30},
		{1, 1, 0},
		{5, 3, 2},
		{2, 7, 0},
	}
	for _, tc := range cases {
		d := CourseDetail{Course: Course{MaxStudents: tc.capacity, Active: true}, ActiveEnrollments: tc.active}
		assert.Equal(t, tc.want, d.AvailableSlots())
		assert.GreaterOrEqual(t, d.AvailableSlots(), 0)
	}
}

func TestIsAvailableRequiresActiveAndSlots(t *testing.T) {
	open := CourseDetail{Course: Course{MaxStudents: 2, Active: true}, ActiveEnrollments: 1}
	assert.True(t, open.IsAvailable())

	inactive := open
	inactive.Active = false
	assert.False(t, inactive.IsAvailable())

	full := open
	full.ActiveEnrollments = 2
	assert.False(t, full.IsAvailable())

	view := NewCourseView(full)
	assert.Equal(t, 0, view.AvailableSlots)
	assert.False(t, view.IsAvailable)
}
