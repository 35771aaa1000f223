package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[string]*models.User
	students    map[string]*models.Student
	instructors map[string]*models.Instructor
	tokens      map[string]*models.RefreshToken
	fakeAudit
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:       map[string]*models.User{},
		students:    map[string]*models.Student{},
		instructors: map[string]*models.Instructor{},
		tokens:      map[string]*models.RefreshToken{},
	}
}

func (r *fakeUserRepo) addUser(t *testing.T, username, password string, role models.UserRole, active bool) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	u := &models.User{ID: uuid.NewString(), Username: username, Email: username + "@example.com", PasswordHash: hash, Role: role, Active: active}
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
	return u
}

func (r *fakeUserRepo) FindByLogin(_ context.Context, login string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			out := *u
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) Taken(_ context.Context, username, email, excludeID string) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var nameTaken, emailTaken bool
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		nameTaken = nameTaken || strings.EqualFold(u.Username, username)
		emailTaken = emailTaken || strings.EqualFold(u.Email, email)
	}
	return nameTaken, emailTaken, nil
}

func (r *fakeUserRepo) CreateWithProfile(_ context.Context, user *models.User, student *models.Student, instructor *models.Instructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	r.users[user.ID] = user
	if student != nil {
		student.ID, student.UserID = uuid.NewString(), user.ID
		r.students[user.ID] = student
	}
	if instructor != nil {
		instructor.ID, instructor.UserID = uuid.NewString(), user.ID
		r.instructors[user.ID] = instructor
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *fakeUserRepo) UpdateAccount(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = active
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tok := range r.tokens {
		if tok.UserID == userID {
			tok.Revoked = true
		}
	}
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tok, ok := r.tokens[token]; ok {
		out := *tok
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tok := range r.tokens {
		if tok.ID == id {
			tok.Revoked = true
			tok.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newAuthService(repo *fakeUserRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "courselab-test",
	})
}

func validRegistration(role models.UserRole) models.RegisterRequest {
	return models.RegisterRequest{
		Username:        "newbie",
		Email:           "Newbie@Example.com",
		FirstName:       "New",
		LastName:        "Bie",
		Password:        "s3cretpass",
		PasswordConfirm: "s3cretpass",
		Role:            role,
		Specialization:  "Distributed systems",
	}
}

func TestRegisterCreatesProfileForRole(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	info, err := svc.Register(context.Background(), validRegistration(models.RoleStudent), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "newbie@example.com", info.Email)
	assert.Equal(t, models.RoleStudent, info.Role)
	require.Contains(t, repo.students, info.ID)
	assert.Equal(t, models.FacultyCyberSecurity, repo.students[info.ID].Faculty)
	assert.Empty(t, repo.instructors)

	req := validRegistration(models.RoleTeacher)
	req.Username, req.Email = "teach", "teach@example.com"
	info, err = svc.Register(context.Background(), req, RequestMeta{})
	require.NoError(t, err)
	require.Contains(t, repo.instructors, info.ID)
	assert.Equal(t, "Distributed systems", repo.instructors[info.ID].Specialization)
}

func TestRegisterRejectsDuplicatesAndAdminRole(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addUser(t, "newbie", "whatever1", models.RoleStudent, true)
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), validRegistration(models.RoleStudent), RequestMeta{})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "username")
	assert.Contains(t, appErr.Fields, "email")

	req := validRegistration(models.RoleAdmin)
	req.Username, req.Email = "root", "root@example.com"
	_, err = svc.Register(context.Background(), req, RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = validRegistration(models.RoleStudent)
	req.Username, req.Email, req.PasswordConfirm = "other", "other@example.com", "mismatch"
	_, err = svc.Register(context.Background(), req, RequestMeta{})
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "password_confirm")
}

func TestLoginIssuesValidTokens(t *testing.T) {
	repo := newFakeUserRepo()
	user := repo.addUser(t, "alice", "password1", models.RoleTeacher, true)
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Login: "ALICE@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Contains(t, repo.actions(), models.AuditActionLogin)

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "courselab-test"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestLoginFailures(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addUser(t, "bob", "password1", models.RoleStudent, false)
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Login: "bob", Password: "wrong-pass"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Login: "nobody", Password: "password1"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Login: "bob", Password: "password1"})
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addUser(t, "carol", "password1", models.RoleStudent, true)
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Login: "carol", Password: "password1"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestLogoutChecksOwnership(t *testing.T) {
	repo := newFakeUserRepo()
	user := repo.addUser(t, "dan", "password1", models.RoleStudent, true)
	svc := newAuthService(repo)
	login, err := svc.Login(context.Background(), models.LoginRequest{Login: "dan", Password: "password1"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else", RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, user.ID, RequestMeta{}))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newFakeUserRepo()
	user := repo.addUser(t, "eve", "password1", models.RoleStudent, true)
	svc := newAuthService(repo)
	login, err := svc.Login(context.Background(), models.LoginRequest{Login: "eve", Password: "password1"})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{OldPassword: "nope-nope", NewPassword: "password2"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "old_password")

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{OldPassword: "password1", NewPassword: "password2"}))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	_, err = svc.Login(context.Background(), models.LoginRequest{Login: "eve", Password: "password2"})
	assert.NoError(t, err)
}
