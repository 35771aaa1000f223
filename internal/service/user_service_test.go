package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

func TestUserListIsAdminOnly(t *testing.T) {
	repo := newFakeUserRepo()
	student := repo.addUser(t, "stu", "password1", models.RoleStudent, true)
	svc := NewUserService(repo, nil, nil, nil)

	_, _, err := svc.List(context.Background(), principal(student.ID, models.RoleStudent), models.UserFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	users, page, err := svc.List(context.Background(), principal("admin", models.RoleAdmin), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, page.TotalCount)
}

func TestUpdateAccountOwnOnly(t *testing.T) {
	repo := newFakeUserRepo()
	me := repo.addUser(t, "me", "password1", models.RoleStudent, true)
	other := repo.addUser(t, "other", "password1", models.RoleStudent, true)
	svc := NewUserService(repo, nil, nil, nil)
	p := principal(me.ID, models.RoleStudent)

	first := " Maria "
	updated, err := svc.UpdateAccount(context.Background(), p, me.ID, models.UpdateAccountRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Maria", updated.FirstName)

	_, err = svc.UpdateAccount(context.Background(), p, other.ID, models.UpdateAccountRequest{FirstName: &first})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	taken := "OTHER@example.com"
	_, err = svc.UpdateAccount(context.Background(), p, me.ID, models.UpdateAccountRequest{Email: &taken})
	assert.True(t, appErrors.IsConflict(err))
}

func TestSetActiveRevokesSessions(t *testing.T) {
	repo := newFakeUserRepo()
	target := repo.addUser(t, "target", "password1", models.RoleStudent, true)
	admin := repo.addUser(t, "boss", "password1", models.RoleAdmin, true)
	auth := newAuthService(repo)
	login, err := auth.Login(context.Background(), models.LoginRequest{Login: "target", Password: "password1"})
	require.NoError(t, err)

	svc := NewUserService(repo, nil, nil, nil)
	p := principal(admin.ID, models.RoleAdmin)

	_, err = svc.SetActive(context.Background(), p, admin.ID, false)
	assert.True(t, appErrors.IsConflict(err))

	updated, err := svc.SetActive(context.Background(), p, target.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
	assert.Contains(t, repo.actions(), models.AuditActionActiveToggle)

	_, err = svc.SetActive(context.Background(), p, "missing", true)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestAccountWritesInvalidateDashboards(t *testing.T) {
	repo := newFakeUserRepo()
	me := repo.addUser(t, "me", "password1", models.RoleStudent, true)
	admin := repo.addUser(t, "boss", "password1", models.RoleAdmin, true)
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewUserService(repo, cache, nil, nil)

	cache.Set(context.Background(), DashboardCachePrefix+"student:"+me.ID, map[string]string{"name": "old"}, 0)

	first := "New"
	_, err := svc.UpdateAccount(context.Background(), principal(me.ID, models.RoleStudent), me.ID, models.UpdateAccountRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, []string{DashboardCachePrefix + "*"}, cacheRepo.deleted)
	var cached map[string]string
	assert.False(t, cache.Get(context.Background(), DashboardCachePrefix+"student:"+me.ID, &cached))

	_, err = svc.SetActive(context.Background(), principal(admin.ID, models.RoleAdmin), me.ID, false)
	require.NoError(t, err)
	assert.Len(t, cacheRepo.deleted, 2)
}
