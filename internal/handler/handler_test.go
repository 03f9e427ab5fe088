package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iqrolife/iqrolife-api/internal/middleware"
	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/service"
	"github.com/iqrolife/iqrolife-api/internal/session"
	"github.com/iqrolife/iqrolife-api/pkg/config"
)

type userStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	lastFilter models.UserFilter
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *userStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *userStore) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (s *userStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *userStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsActive = false
	return nil
}

func (s *userStore) setActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id].IsActive = active
}

type emptyRoles struct{}

func (emptyRoles) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return nil, sql.ErrNoRows
}

type noResets struct{}

func (noResets) Save(ctx context.Context, hash, userID string, ttl time.Duration) error { return nil }

func (noResets) Consume(ctx context.Context, hash string) (string, error) { return "", redis.Nil }

type zeroVersion struct{}

func (zeroVersion) Version(ctx context.Context) int64 { return 0 }

type auditStub struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditStub) Record(_ context.Context, entry models.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, entry.Action)
}

type testApp struct {
	router   *gin.Engine
	users    *userStore
	audit    *auditStub
	sessions *session.Manager
	codec    session.Codec
}

func newTestApp(t *testing.T, configure func(*Routes)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &userStore{users: map[string]*models.User{
		"staff-1": {ID: "staff-1", Email: "staff@iqrolife.id", Name: "Staff", Role: "staff", IsActive: true, PasswordHash: string(hash)},
	}}
	audit := &auditStub{}

	cfg := config.SessionConfig{Secret: "handler-test-secret", Issuer: "iqrolife", CookieName: "auth-token", TTL: 7 * 24 * time.Hour}
	codec, err := session.NewCodec(cfg)
	require.NoError(t, err)
	sessions := session.NewManager(codec, cfg)

	authSvc := service.NewAuthService(users, emptyRoles{}, noResets{}, zeroVersion{}, audit, nil, nil, service.NewValidator(), zap.NewNop(), service.AuthConfig{})

	routes := Routes{
		APIPrefix:     "/api/v1",
		Authenticator: middleware.NewAuthenticator(sessions, nil),
		Audit:         audit,
		Auth:          NewAuthHandler(authSvc, sessions),
	}
	if configure != nil {
		configure(&routes)
	}

	r := gin.New()
	routes.Register(r)
	return &testApp{router: r, users: users, audit: audit, sessions: sessions, codec: codec}
}

func (a *testApp) do(method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) token(t *testing.T, perms models.Permissions) *http.Cookie {
	t.Helper()
	if perms.Menus == nil {
		perms.Menus = []string{}
	}
	token, _, err := a.codec.Encode(models.SessionUser{ID: "staff-1", Email: "staff@iqrolife.id", Role: "staff", IsActive: true, Permissions: perms})
	require.NoError(t, err)
	return &http.Cookie{Name: "auth-token", Value: token}
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth-token" {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), strings.TrimSpace(w.Body.String()))
}
