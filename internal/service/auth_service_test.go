package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iqrolife/iqrolife-api/internal/models"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
)

type capturingNotifier struct {
	links []string
}

func (n *capturingNotifier) SendPasswordReset(_ context.Context, _ *models.User, link string) error {
	n.links = append(n.links, link)
	return nil
}

type authFixture struct {
	svc      *AuthService
	users    *mockUserRepo
	roles    *mockRoleRepo
	resets   *memoryResetStore
	audit    *recordingAudit
	notifier *capturingNotifier
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(t *testing.T, users ...*models.User) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    newMockUserRepo(users...),
		roles:    newMockRoleRepo(),
		resets:   &memoryResetStore{},
		audit:    &recordingAudit{},
		notifier: &capturingNotifier{},
	}
	f.svc = NewAuthService(f.users, f.roles, f.resets, fixedVersion(7), f.audit, f.notifier, nil, NewValidator(), zap.NewNop(), AuthConfig{
		ResetURL: "http://localhost:3000/dashboard/reset-password",
	})
	return f
}

func staffUser(t *testing.T) *models.User {
	return &models.User{ID: "user-1", Email: "staff@iqrolife.id", Name: "Staff", Role: "staff", IsActive: true, PasswordHash: hashPassword(t, "secret123")}
}

func TestAuthServiceLoginStaffWithoutRoleRowUsesDefaults(t *testing.T) {
	f := newAuthFixture(t, staffUser(t))

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "staff@iqrolife.id", Password: "secret123"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.MenuVersion)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.ElementsMatch(t, []string{"home", "calon-murid", "formulir-list", "formulir", "portofolio"}, resp.User.Permissions.Menus)
	assert.False(t, resp.User.Permissions.CanAccessAll)
	assert.Equal(t, []string{models.AuditActionLogin}, f.audit.actions())
}

func TestAuthServiceLoginUsesRoleRow(t *testing.T) {
	f := newAuthFixture(t, staffUser(t))
	f.roles.roles["r1"] = &models.Role{ID: "r1", Name: "Staff", Permissions: models.PermissionsDocument(`{"menus":["home"],"canViewPortfolio":true}`)}

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "staff@iqrolife.id", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, resp.User.Permissions.Menus)
	assert.True(t, resp.User.Permissions.CanViewPortfolio)
	assert.False(t, resp.User.Permissions.CanManageForms)
}

func TestAuthServiceLoginInactiveIgnoresPassword(t *testing.T) {
	user := staffUser(t)
	user.IsActive = false
	f := newAuthFixture(t, user)

	for _, password := range []string{"secret123", "wrong-password"} {
		_, err := f.svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: password})
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
	}
	assert.Empty(t, f.audit.actions())
}

func TestAuthServiceLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	f := newAuthFixture(t, staffUser(t))

	_, unknownErr := f.svc.Login(context.Background(), models.LoginRequest{Email: "nobody@iqrolife.id", Password: "secret123"})
	_, wrongErr := f.svc.Login(context.Background(), models.LoginRequest{Email: "staff@iqrolife.id", Password: "nope-nope"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr, wrongErr)
	assert.Equal(t, 401, appErrors.FromError(unknownErr).Status)
}

func TestAuthServiceEmailLookupIgnoresCaseAndPadding(t *testing.T) {
	f := newAuthFixture(t, staffUser(t))

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "  Staff@IqroLife.ID ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.User.ID)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "STAFF@iqrolife.id"}))
	assert.Len(t, f.notifier.links, 1)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []models.LoginRequest{
		{Email: "not-an-email", Password: "secret123"},
		{Email: "", Password: "secret123"},
		{Email: "staff@iqrolife.id", Password: ""},
	}
	for _, req := range cases {
		_, err := f.svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, 400, appErrors.FromError(err).Status)
	}
}

func TestAuthServiceLoginRoleLookupFailure(t *testing.T) {
	f := newAuthFixture(t, staffUser(t))
	f.roles.findErr = errors.New("db down")

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "staff@iqrolife.id", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, 500, appErrors.FromError(err).Status)
}

func TestAuthServiceRefresh(t *testing.T) {
	user := staffUser(t)
	f := newAuthFixture(t, user)

	principal, reason, err := f.svc.Refresh(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, reason)
	assert.Equal(t, user.Email, principal.Email)

	f.users.users[user.ID].IsActive = false
	principal, reason, err = f.svc.Refresh(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, principal)
	assert.Equal(t, models.SessionReasonInactive, reason)
	assert.Contains(t, f.audit.actions(), models.AuditActionSessionRevoked)

	principal, reason, err = f.svc.Refresh(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, principal)
	assert.Equal(t, models.SessionReasonNotFound, reason)
}

func TestAuthServiceRefreshPicksUpRoleChanges(t *testing.T) {
	user := staffUser(t)
	f := newAuthFixture(t, user)

	first, _, err := f.svc.Refresh(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Contains(t, first.Permissions.Menus, "formulir")

	f.roles.roles["r1"] = &models.Role{ID: "r1", Name: "staff", Permissions: models.PermissionsDocument(`{"menus":["home"]}`)}
	second, _, err := f.svc.Refresh(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, second.Permissions.Menus)
}

func TestAuthServiceChangePassword(t *testing.T) {
	user := staffUser(t)
	f := newAuthFixture(t, user)

	err := f.svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{OldPassword: "wrong-one", NewPassword: "newsecret123"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	err = f.svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret123"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.users.users[user.ID].PasswordHash), []byte("newsecret123")))
	assert.Equal(t, []string{models.AuditActionPasswordChange}, f.audit.actions())
}

func TestAuthServiceForgotAndResetPassword(t *testing.T) {
	user := staffUser(t)
	f := newAuthFixture(t, user)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "nobody@iqrolife.id"}))
	assert.Empty(t, f.notifier.links)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: user.Email}))
	require.Len(t, f.notifier.links, 1)

	link, err := url.Parse(f.notifier.links[0])
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	assert.NotContains(t, f.resets.tokens, token)

	err = f.svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: token, NewPassword: "brandnew123"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.users.users[user.ID].PasswordHash), []byte("brandnew123")))

	err = f.svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: token, NewPassword: "another123"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
}

func TestAuthServiceForgotPasswordSkipsInactive(t *testing.T) {
	user := staffUser(t)
	user.IsActive = false
	f := newAuthFixture(t, user)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: user.Email}))
	assert.Empty(t, f.notifier.links)
}

func TestAuthServiceUpdateProfile(t *testing.T) {
	user := staffUser(t)
	f := newAuthFixture(t, user)

	principal, err := f.svc.UpdateProfile(context.Background(), user.ID, models.UpdateProfileRequest{Name: strPtr("  New Name "), Phone: strPtr("")}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "New Name", principal.Name)
	assert.Nil(t, principal.Phone)
	assert.Equal(t, "New Name", f.users.users[user.ID].Name)
}

func TestAuthServiceLogoutAudits(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.Logout(context.Background(), nil, models.RequestMeta{})
	f.svc.Logout(context.Background(), &models.SessionUser{ID: "user-1", Email: "staff@iqrolife.id"}, models.RequestMeta{IP: "127.0.0.1"})
	assert.Equal(t, []string{models.AuditActionLogout}, f.audit.actions())
}
