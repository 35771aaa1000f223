package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/internal/repository"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

// fakeLedger is an in-memory stand-in for the course, student, instructor and
// enrollment repositories with the same rules as the SQL implementation.
type fakeLedger struct {
	mu          sync.Mutex
	courses     map[string]*models.CourseDetail
	students    map[string]*models.StudentDetail
	instructors map[string]*models.InstructorDetail
	enrollments map[string]*models.Enrollment
	now         time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		courses:     map[string]*models.CourseDetail{},
		students:    map[string]*models.StudentDetail{},
		instructors: map[string]*models.InstructorDetail{},
		enrollments: map[string]*models.Enrollment{},
		now:         time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeLedger) addInstructor(userID string) *models.InstructorDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	ins := &models.InstructorDetail{
		Instructor: models.Instructor{ID: uuid.NewString(), UserID: userID, Specialization: "Go", Active: true},
		FirstName:  "Rob", LastName: "Pike", Username: userID,
	}
	f.instructors[ins.ID] = ins
	return ins
}

func (f *fakeLedger) addStudent(userID string) *models.StudentDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &models.StudentDetail{
		Student:   models.Student{ID: uuid.NewString(), UserID: userID, Faculty: models.FacultySoftwareEng, Active: true},
		FirstName: "Stu", LastName: userID, Email: userID + "@example.com", Username: userID,
	}
	f.students[st.ID] = st
	return st
}

func (f *fakeLedger) addCourse(capacity int, instructor *models.InstructorDetail) *models.CourseDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.CourseDetail{Course: models.Course{
		ID: uuid.NewString(), Title: "Course", Slug: "course-" + uuid.NewString()[:8], DurationHours: 10,
		Level: models.LevelBeginner, MaxStudents: capacity, Active: true,
	}}
	if instructor != nil {
		id, uid := instructor.ID, instructor.UserID
		c.InstructorID, c.InstructorUserID = &id, &uid
	}
	f.courses[c.ID] = c
	return c
}

func (f *fakeLedger) activeCount(courseID string) int {
	n := 0
	for _, e := range f.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentActive {
			n++
		}
	}
	return n
}

func (f *fakeLedger) courseDetail(c *models.CourseDetail) *models.CourseDetail {
	out := *c
	out.ActiveEnrollments = f.activeCount(c.ID)
	return &out
}

// enrollmentRepository

func (f *fakeLedger) Enroll(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	course, ok := f.courses[courseID]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	if !course.Active {
		return nil, repository.ErrCourseInactive
	}
	student, ok := f.students[studentID]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	if !student.Active {
		return nil, repository.ErrStudentInactive
	}
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return nil, repository.ErrDuplicateEnrollment
		}
	}
	if f.activeCount(courseID) >= course.MaxStudents {
		return nil, repository.ErrCourseFull
	}
	e := &models.Enrollment{ID: uuid.NewString(), StudentID: studentID, CourseID: courseID, Status: models.EnrollmentActive, EnrolledAt: f.now, UpdatedAt: f.now}
	f.enrollments[e.ID] = e
	out := *e
	return &out, nil
}

func (f *fakeLedger) Transition(_ context.Context, id string, status models.EnrollmentStatus, grade *float64) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok || e.Status != models.EnrollmentActive {
		return nil, repository.ErrStaleStatus
	}
	e.Status = status
	if grade != nil {
		g := *grade
		e.Grade = &g
	}
	if status == models.EnrollmentCompleted && e.CompletedAt == nil {
		at := f.now
		e.CompletedAt = &at
	}
	e.UpdatedAt = f.now
	out := *e
	return &out, nil
}

func (f *fakeLedger) SetGrade(_ context.Context, id string, grade float64) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok || e.Status == models.EnrollmentDropped {
		return nil, repository.ErrStaleStatus
	}
	e.Grade = &grade
	out := *e
	return &out, nil
}

func (f *fakeLedger) detail(e *models.Enrollment) models.EnrollmentDetail {
	d := models.EnrollmentDetail{Enrollment: *e}
	if st, ok := f.students[e.StudentID]; ok {
		d.StudentUserID = st.UserID
		d.StudentName = st.FullName()
		d.StudentEmail = st.Email
	}
	if c, ok := f.courses[e.CourseID]; ok {
		d.CourseTitle = c.Title
		d.CourseSlug = c.Slug
		d.InstructorUserID = c.InstructorUserID
	}
	return d
}

func (f *fakeLedger) FindByID(_ context.Context, id string) (*models.EnrollmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := f.detail(e)
	return &d, nil
}

func (f *fakeLedger) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range f.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if filter.InstructorID != "" {
			c := f.courses[e.CourseID]
			if c == nil || c.InstructorID == nil || *c.InstructorID != filter.InstructorID {
				continue
			}
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, f.detail(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeLedger) ListRoster(_ context.Context, courseID string) ([]models.RosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RosterEntry
	for _, e := range f.enrollments {
		if e.CourseID != courseID {
			continue
		}
		st := f.students[e.StudentID]
		out = append(out, models.RosterEntry{
			EnrollmentID: e.ID, StudentID: st.ID, StudentNumber: st.StudentNumber,
			FirstName: st.FirstName, LastName: st.LastName, Email: st.Email,
			Status: e.Status, Grade: e.Grade, EnrolledAt: e.EnrolledAt, CompletedAt: e.CompletedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

// student and instructor lookups

type fakeStudents struct{ *fakeLedger }

func (f fakeStudents) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.students[id]; ok {
		out := *st
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeStudents) FindByUserID(_ context.Context, userID string) (*models.StudentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.students {
		if st.UserID == userID {
			out := *st
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeInstructors struct{ *fakeLedger }

func (f fakeInstructors) FindByID(_ context.Context, id string) (*models.InstructorDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ins, ok := f.instructors[id]; ok {
		out := *ins
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeInstructors) FindByUserID(_ context.Context, userID string) (*models.InstructorDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ins := range f.instructors {
		if ins.UserID == userID {
			out := *ins
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

// courseRepository

type fakeCourses struct{ *fakeLedger }

func (f fakeCourses) List(_ context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CourseDetail
	for _, c := range f.courses {
		if filter.InstructorID != "" && (c.InstructorID == nil || *c.InstructorID != filter.InstructorID) {
			continue
		}
		out = append(out, *f.courseDetail(c))
	}
	return out, len(out), nil
}

func (f fakeCourses) FindByID(_ context.Context, id string) (*models.CourseDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.courses[id]; ok {
		return f.courseDetail(c), nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeCourses) FindBySlug(_ context.Context, slug string) (*models.CourseDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.courses {
		if c.Slug == slug {
			return f.courseDetail(c), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeCourses) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.courses {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCourses) Create(_ context.Context, course *models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	detail := &models.CourseDetail{Course: *course}
	if course.InstructorID != nil {
		if ins, ok := f.instructors[*course.InstructorID]; ok {
			uid := ins.UserID
			detail.InstructorUserID = &uid
		}
	}
	f.courses[course.ID] = detail
	return nil
}

func (f fakeCourses) Update(_ context.Context, course *models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.courses[course.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if course.MaxStudents < f.activeCount(course.ID) {
		return repository.ErrCapacityBelowActive
	}
	current.Course = *course
	return nil
}

func (f fakeCourses) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Active = active
	return nil
}

func (f fakeCourses) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	for eid, e := range f.enrollments {
		if e.CourseID == id {
			delete(f.enrollments, eid)
		}
	}
	delete(f.courses, id)
	return nil
}

// collaborators

type fakeAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []models.EnrollmentDetail
	closed    []models.EnrollmentDetail
}

func (f *fakeNotifier) EnrollmentConfirmed(_ context.Context, e models.EnrollmentDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, e)
}

func (f *fakeNotifier) EnrollmentClosed(_ context.Context, e models.EnrollmentDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, e)
}

type stubCacheRepo struct {
	mu      sync.Mutex
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, pattern)
	for key := range s.store {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.store, key)
		}
	}
	return nil
}

func principal(userID string, role models.UserRole) authz.Principal {
	return authz.Principal{UserID: userID, Role: role}
}

func studentName(i int) string {
	return fmt.Sprintf("student%02d", i)
}

func (f fakeStudents) List(_ context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StudentDetail
	for _, st := range f.students {
		if filter.Active != nil && st.Active != *filter.Active {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, len(out), nil
}

func (f fakeStudents) Update(_ context.Context, student *models.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	st.Student = *student
	return nil
}

func (f fakeStudents) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.Active = active
	return nil
}

func (f fakeStudents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	for eid, e := range f.enrollments {
		if e.StudentID == id {
			delete(f.enrollments, eid)
		}
	}
	delete(f.students, id)
	return nil
}

func (f fakeInstructors) List(_ context.Context, _ models.InstructorFilter) ([]models.InstructorDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InstructorDetail
	for _, ins := range f.instructors {
		out = append(out, *ins)
	}
	return out, len(out), nil
}

func (f fakeInstructors) Update(_ context.Context, instructor *models.Instructor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ins, ok := f.instructors[instructor.ID]
	if !ok {
		return sql.ErrNoRows
	}
	ins.Instructor = *instructor
	return nil
}

func (f fakeInstructors) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ins, ok := f.instructors[id]
	if !ok {
		return sql.ErrNoRows
	}
	ins.Active = active
	return nil
}

func (f fakeInstructors) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instructors[id]; !ok {
		return sql.ErrNoRows
	}
	for _, c := range f.courses {
		if c.InstructorID != nil && *c.InstructorID == id {
			c.InstructorID = nil
			c.InstructorUserID = nil
		}
	}
	delete(f.instructors, id)
	return nil
}
