package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/dto"
	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

type stubDashboardRepo struct {
	admin       *dto.AdminDashboardResponse
	courses     []dto.TeacherCourseSummary
	enrollments []models.EnrollmentDetail
	adminCalls  int
}

func (s *stubDashboardRepo) AdminSummary(context.Context) (*dto.AdminDashboardResponse, error) {
	s.adminCalls++
	out := *s.admin
	return &out, nil
}

func (s *stubDashboardRepo) TeacherCourses(context.Context, string) ([]dto.TeacherCourseSummary, error) {
	return s.courses, nil
}

func (s *stubDashboardRepo) StudentEnrollments(context.Context, string) ([]models.EnrollmentDetail, error) {
	return s.enrollments, nil
}

func newDashboardFixture(repo *stubDashboardRepo) (*DashboardService, *stubCacheRepo, *fakeLedger) {
	ledger := newFakeLedger()
	cacheRepo := &stubCacheRepo{}
	svc := NewDashboardService(DashboardServiceParams{
		Repo:        repo,
		Students:    fakeStudents{ledger},
		Instructors: fakeInstructors{ledger},
		Cache:       NewCacheService(cacheRepo, NewMetricsService(), time.Minute, zap.NewNop(), true),
	})
	return svc, cacheRepo, ledger
}

func TestAdminDashboardIsCached(t *testing.T) {
	repo := &stubDashboardRepo{admin: &dto.AdminDashboardResponse{ActiveStudents: 4, ActiveCourses: 2, ActiveEnrollments: 5}}
	svc, cacheRepo, _ := newDashboardFixture(repo)
	admin := principal("admin", models.RoleAdmin)

	first, err := svc.Admin(context.Background(), admin)
	require.NoError(t, err)
	second, err := svc.Admin(context.Background(), admin)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.adminCalls)
	assert.Contains(t, cacheRepo.store, AdminDashboardKey)

	svc.cache.InvalidateDashboards(context.Background())
	_, err = svc.Admin(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.adminCalls)
}

func TestAdminDashboardForbiddenForOthers(t *testing.T) {
	svc, _, _ := newDashboardFixture(&stubDashboardRepo{admin: &dto.AdminDashboardResponse{}})
	_, err := svc.Admin(context.Background(), principal("t", models.RoleTeacher))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestStudentDashboardSummarisesEnrollments(t *testing.T) {
	g1, g2 := 4.0, 4.5
	repo := &stubDashboardRepo{enrollments: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{Status: models.EnrollmentActive}},
		{Enrollment: models.Enrollment{Status: models.EnrollmentCompleted, Grade: &g1}},
		{Enrollment: models.Enrollment{Status: models.EnrollmentCompleted, Grade: &g2}},
		{Enrollment: models.Enrollment{Status: models.EnrollmentDropped}},
	}}
	svc, _, ledger := newDashboardFixture(repo)
	ledger.addStudent("ann")

	resp, err := svc.Student(context.Background(), principal("ann", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, dto.EnrollmentStatusSummary{Active: 1, Completed: 2, Dropped: 1}, resp.Summary)
	require.NotNil(t, resp.AverageGrade)
	assert.Equal(t, 4.25, *resp.AverageGrade)
	assert.Equal(t, "ann", resp.Profile.UserID)
}

func TestTeacherDashboardComputesSlots(t *testing.T) {
	repo := &stubDashboardRepo{courses: []dto.TeacherCourseSummary{
		{CourseID: "c1", MaxStudents: 10, ActiveEnrollments: 4},
		{CourseID: "c2", MaxStudents: 2, ActiveEnrollments: 3},
	}}
	svc, _, ledger := newDashboardFixture(repo)
	ledger.addInstructor("tess")

	resp, err := svc.Teacher(context.Background(), principal("tess", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, 6, resp.Courses[0].AvailableSlots)
	assert.Equal(t, 0, resp.Courses[1].AvailableSlots)
	assert.Equal(t, dto.TeacherTotals{Courses: 2, ActiveStudents: 7}, resp.Totals)
}

func TestForPrincipalDispatchesByRole(t *testing.T) {
	svc, _, ledger := newDashboardFixture(&stubDashboardRepo{admin: &dto.AdminDashboardResponse{}})
	ledger.addStudent("sid")

	out, err := svc.ForPrincipal(context.Background(), principal("sid", models.RoleStudent))
	require.NoError(t, err)
	assert.IsType(t, &dto.StudentDashboardResponse{}, out)

	_, err = svc.ForPrincipal(context.Background(), principal("ghost", models.RoleTeacher))
	assert.True(t, appErrors.IsNotFound(err))

	_, err = svc.ForPrincipal(context.Background(), principal("x", ""))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
