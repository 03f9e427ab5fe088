package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/repository"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
)

func newUserServiceForTest(users ...*models.User) (*UserService, *mockUserRepo, *recordingAudit) {
	repo := newMockUserRepo(users...)
	audit := &recordingAudit{}
	return NewUserService(repo, audit, NewValidator(), zap.NewNop()), repo, audit
}

func TestUserServiceCreate(t *testing.T) {
	svc, repo, audit := newUserServiceForTest()

	user, err := svc.Create(context.Background(), "admin-1", models.CreateUserRequest{
		Email: " New.Staff@Iqrolife.ID ", Name: "New Staff", Password: "password123", Role: "Staff",
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "new.staff@iqrolife.id", user.Email)
	assert.Equal(t, "staff", user.Role)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("password123")))
	assert.Equal(t, []string{models.AuditActionUserCreate}, audit.actions())
}

func TestUserServiceCreatedAccountCanLogIn(t *testing.T) {
	svc, repo, _ := newUserServiceForTest()
	_, err := svc.Create(context.Background(), "admin-1", models.CreateUserRequest{
		Email: "Guru.Baru@Iqrolife.ID", Name: "Guru Baru", Password: "password123", Role: "staff",
	}, models.RequestMeta{})
	require.NoError(t, err)

	auth := NewAuthService(repo, newMockRoleRepo(), &memoryResetStore{}, fixedVersion(0), &recordingAudit{}, nil, nil, NewValidator(), zap.NewNop(), AuthConfig{})
	resp, err := auth.Login(context.Background(), models.LoginRequest{Email: "Guru.Baru@Iqrolife.ID", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "guru.baru@iqrolife.id", resp.User.Email)
}

func TestUserServiceCreateErrors(t *testing.T) {
	svc, repo, _ := newUserServiceForTest()

	_, err := svc.Create(context.Background(), "admin-1", models.CreateUserRequest{Email: "bad", Name: "x", Password: "password123", Role: "staff"}, models.RequestMeta{})
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	repo.createErr = repository.ErrDuplicate
	_, err = svc.Create(context.Background(), "admin-1", models.CreateUserRequest{Email: "a@b.co", Name: "x", Password: "password123", Role: "staff"}, models.RequestMeta{})
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

func TestUserServiceUpdate(t *testing.T) {
	svc, repo, _ := newUserServiceForTest(&models.User{ID: "u1", Email: "a@b.co", Role: "staff", IsActive: true})

	user, err := svc.Update(context.Background(), "admin-1", "u1", models.UpdateUserRequest{Role: strPtr("ADMIN"), Phone: strPtr("0812")}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)
	require.NotNil(t, repo.users["u1"].Phone)
	assert.Equal(t, "0812", *repo.users["u1"].Phone)

	_, err = svc.Update(context.Background(), "u1", "u1", models.UpdateUserRequest{IsActive: boolPtr(false)}, models.RequestMeta{})
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	_, err = svc.Update(context.Background(), "admin-1", "missing", models.UpdateUserRequest{}, models.RequestMeta{})
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestUserServiceDeleteDeactivates(t *testing.T) {
	svc, repo, audit := newUserServiceForTest(&models.User{ID: "u1", Email: "a@b.co", Role: "staff", IsActive: true})

	err := svc.Delete(context.Background(), "u1", "u1", models.RequestMeta{})
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "u1", models.RequestMeta{}))
	assert.False(t, repo.users["u1"].IsActive)
	assert.Equal(t, []string{models.AuditActionUserDelete}, audit.actions())

	err = svc.Delete(context.Background(), "admin-1", "missing", models.RequestMeta{})
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestUserServiceListDefaultsPagination(t *testing.T) {
	svc, _, _ := newUserServiceForTest(&models.User{ID: "u1"}, &models.User{ID: "u2"})

	users, pagination, err := svc.List(context.Background(), models.UserFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}
