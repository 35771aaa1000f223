package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

func courseRequest(title string) models.CreateCourseRequest {
	return models.CreateCourseRequest{
		Title:         title,
		Description:   "An introduction.",
		DurationHours: 12,
		MaxStudents:   10,
		Price:         decimal.RequireFromString("19.999"),
	}
}

func TestCreateCourseAssignsTeacherAndSlug(t *testing.T) {
	f := newLedgerFixture(t)

	view, err := f.courses.Create(context.Background(), f.teacher, courseRequest("Go for Beginners"))
	require.NoError(t, err)
	assert.Equal(t, "go-for-beginners", view.Slug)
	require.NotNil(t, view.InstructorID)
	assert.Equal(t, f.ins.ID, *view.InstructorID)
	assert.Equal(t, models.LevelBeginner, view.Level)
	assert.Equal(t, "20.00", view.Price.StringFixed(2))
	assert.Equal(t, 10, view.AvailableSlots)
	assert.True(t, view.IsAvailable)

	again, err := f.courses.Create(context.Background(), f.teacher, courseRequest("Go for beginners"))
	require.NoError(t, err)
	assert.Equal(t, "go-for-beginners-2", again.Slug)
	assert.Contains(t, f.audit.actions(), models.AuditActionCourseCreate)
}

func TestExplicitSlugMustBeFree(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	first, err := f.courses.Create(ctx, f.teacher, courseRequest("Go for Beginners"))
	require.NoError(t, err)

	req := courseRequest("Something else")
	req.Slug = "Go for Beginners"
	_, err = f.courses.Create(ctx, f.teacher, req)
	require.True(t, appErrors.IsConflict(err))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "slug")

	req.Slug = "custom-slug"
	second, err := f.courses.Create(ctx, f.teacher, req)
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", second.Slug)

	taken := first.Slug
	_, err = f.courses.Update(ctx, f.teacher, second.ID, models.UpdateCourseRequest{Slug: &taken})
	assert.True(t, appErrors.IsConflict(err))
}

func TestCreateCourseValidation(t *testing.T) {
	f := newLedgerFixture(t)

	req := courseRequest("  ")
	_, err := f.courses.Create(context.Background(), f.admin, req)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "title")

	req = courseRequest("Valid")
	req.MaxStudents = 101
	_, err = f.courses.Create(context.Background(), f.admin, req)
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "max_students")

	req = courseRequest("Valid")
	req.Price = decimal.NewFromInt(-1)
	_, err = f.courses.Create(context.Background(), f.admin, req)
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "price")
}

func TestCreateCourseForbiddenForStudents(t *testing.T) {
	f := newLedgerFixture(t)
	p, _ := f.student("sam")
	_, err := f.courses.Create(context.Background(), p, courseRequest("Nope"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestUpdateCourseCapacityBelowActive(t *testing.T) {
	f := newLedgerFixture(t)
	course := f.ledger.addCourse(3, f.ins)
	for i := 0; i < 2; i++ {
		p, _ := f.student(studentName(i))
		f.enroll(t, p, course.ID)
	}

	one := 1
	_, err := f.courses.Update(context.Background(), f.teacher, course.ID, models.UpdateCourseRequest{MaxStudents: &one})
	assert.True(t, errors.Is(err, appErrors.ErrCapacityBelowEnrollment))
	assert.True(t, appErrors.IsConflict(err))

	two := 2
	view, err := f.courses.Update(context.Background(), f.teacher, course.ID, models.UpdateCourseRequest{MaxStudents: &two})
	require.NoError(t, err)
	assert.Equal(t, 0, view.AvailableSlots)
	assert.False(t, view.IsAvailable)
}

func TestUpdateCourseOwnership(t *testing.T) {
	f := newLedgerFixture(t)
	course := f.ledger.addCourse(3, f.ins)
	outsider := principal("outsider", models.RoleTeacher)
	f.ledger.addInstructor(outsider.UserID)

	title := "Renamed"
	_, err := f.courses.Update(context.Background(), outsider, course.ID, models.UpdateCourseRequest{Title: &title})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	other := f.ledger.addInstructor("new-owner")
	_, err = f.courses.Update(context.Background(), f.teacher, course.ID, models.UpdateCourseRequest{InstructorID: &other.ID})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	view, err := f.courses.Update(context.Background(), f.admin, course.ID, models.UpdateCourseRequest{InstructorID: &other.ID, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, other.ID, *view.InstructorID)
	assert.Equal(t, "Renamed", view.Title)
}

func TestDeleteCourseCascadesAndIsAdminOnly(t *testing.T) {
	f := newLedgerFixture(t)
	course := f.ledger.addCourse(3, f.ins)
	p, _ := f.student("tom")
	e := f.enroll(t, p, course.ID)

	err := f.courses.Delete(context.Background(), f.teacher, course.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, f.courses.Delete(context.Background(), f.admin, course.Slug))
	_, err = f.courses.Get(context.Background(), course.ID)
	assert.True(t, appErrors.IsNotFound(err))
	_, err = f.enrollments.Get(context.Background(), f.admin, e.ID)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestCourseAvailabilityUnknownCourse(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.courses.Availability(context.Background(), "missing-course")
	assert.True(t, appErrors.IsNotFound(err))
}
