package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/pkg/config"
)

func sampleUser() models.SessionUser {
	phone := "0812"
	return models.SessionUser{
		ID:       "u-1",
		Email:    "staff@example.com",
		Name:     "Staff",
		Role:     "staff",
		Phone:    &phone,
		IsActive: true,
		Permissions: models.Permissions{
			Menus:             []string{"home", "formulir"},
			CanManageStudents: true,
		},
	}
}

func codecs() map[string]Codec {
	return map[string]Codec{
		"jwt":          NewJWTCodec("secret", "iqrolife", time.Hour),
		"securecookie": NewSecureCookieCodec("auth-token", "secret", "", time.Hour),
		"encrypted":    NewSecureCookieCodec("auth-token", "secret", "enc-key", time.Hour),
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			token, expiresAt, err := codec.Encode(sampleUser())
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

			got, err := codec.Decode(token)
			require.NoError(t, err)
			assert.Equal(t, sampleUser(), *got)
		})
	}
}

func TestCodecRejectsTamperedAndForeignTokens(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			token, _, err := codec.Encode(sampleUser())
			require.NoError(t, err)

			_, err = codec.Decode(token[:len(token)-2] + "xx")
			assert.True(t, errors.Is(err, ErrInvalidToken))
			_, err = codec.Decode("garbage")
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}

	token, _, err := NewJWTCodec("other", "iqrolife", time.Hour).Encode(sampleUser())
	require.NoError(t, err)
	_, err = NewJWTCodec("secret", "iqrolife", time.Hour).Decode(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	token, _, err = NewJWTCodec("secret", "someone-else", time.Hour).Encode(sampleUser())
	require.NoError(t, err)
	_, err = NewJWTCodec("secret", "iqrolife", time.Hour).Decode(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestCodecRejectsExpiredTokens(t *testing.T) {
	jwtCodec := NewJWTCodec("secret", "iqrolife", time.Hour)
	token, _, err := jwtCodec.Encode(sampleUser())
	require.NoError(t, err)
	jwtCodec.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = jwtCodec.Decode(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	scCodec := NewSecureCookieCodec("auth-token", "secret", "", time.Hour)
	token, _, err = scCodec.Encode(sampleUser())
	require.NoError(t, err)
	scCodec.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = scCodec.Decode(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestDecodeNormalisesNilMenus(t *testing.T) {
	user := sampleUser()
	user.Permissions.Menus = nil
	codec := NewJWTCodec("secret", "", time.Hour)
	token, _, err := codec.Encode(user)
	require.NoError(t, err)

	got, err := codec.Decode(token)
	require.NoError(t, err)
	assert.NotNil(t, got.Permissions.Menus)
}

func TestNewCodecSelectsImplementation(t *testing.T) {
	c, err := NewCodec(config.SessionConfig{Codec: config.SessionCodecJWT, Secret: "s", TTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &JWTCodec{}, c)

	c, err = NewCodec(config.SessionConfig{Codec: config.SessionCodecSecureCookie, Secret: "s", CookieName: "auth-token", TTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &SecureCookieCodec{}, c)

	_, err = NewCodec(config.SessionConfig{Codec: config.SessionCodecJWT})
	assert.Error(t, err)
}

func newManager(secure bool) *Manager {
	cfg := config.SessionConfig{CookieName: "auth-token", TTL: 7 * 24 * time.Hour, Secure: secure}
	return NewManager(NewJWTCodec("secret", "iqrolife", cfg.TTL), cfg)
}

func TestManagerIssueSetsCookieAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, secure := range []bool{false, true} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)

		token, err := newManager(secure).Issue(c, sampleUser())
		require.NoError(t, err)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		cookie := cookies[0]
		assert.Equal(t, "auth-token", cookie.Name)
		assert.Equal(t, token, cookie.Value)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, 604800, cookie.MaxAge)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, secure, cookie.Secure)
	}
}

func TestManagerClearExpiresCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)

	newManager(false).Clear(c)

	header := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(header, "auth-token=;"))
	assert.Contains(t, header, "Max-Age=0")
}

func TestManagerRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newManager(false)
	token, _, err := m.codec.Encode(sampleUser())
	require.NoError(t, err)

	read := func(mutate func(r *http.Request)) (*models.SessionUser, error) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		mutate(c.Request)
		return m.Read(c)
	}

	_, err = read(func(r *http.Request) {})
	assert.True(t, errors.Is(err, ErrNoSession))

	user, err := read(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth-token", Value: token}) })
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	user, err = read(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	_, err = read(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth-token", Value: "{\"id\":1}"}) })
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
