package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iqrolife/iqrolife-api/internal/models"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, entry models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type mockUserRepo struct {
	users     map[string]*models.User
	findErr   error
	createErr error
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == "" {
		user.ID = "generated-id"
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsActive = false
	return nil
}

type mockRoleRepo struct {
	roles      map[string]*models.Role
	userCounts map[string]int
	findErr    error
}

func newMockRoleRepo(roles ...*models.Role) *mockRoleRepo {
	m := &mockRoleRepo{roles: map[string]*models.Role{}, userCounts: map[string]int{}}
	for _, r := range roles {
		m.roles[r.ID] = r
	}
	return m
}

func (m *mockRoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.roles {
		if strings.EqualFold(r.Name, name) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoleRepo) FindByID(ctx context.Context, id string) (*models.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockRoleRepo) List(ctx context.Context) ([]models.Role, error) {
	out := make([]models.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRoleRepo) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = "role-" + strings.ToLower(role.Name)
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *mockRoleRepo) Update(ctx context.Context, role *models.Role) error {
	if _, ok := m.roles[role.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *mockRoleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.roles[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.roles, id)
	return nil
}

func (m *mockRoleRepo) CountUsers(ctx context.Context, name string) (int, error) {
	return m.userCounts[strings.ToLower(name)], nil
}

type memoryResetStore struct {
	tokens map[string]string
	err    error
}

func (s *memoryResetStore) Save(ctx context.Context, tokenHash, userID string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if s.tokens == nil {
		s.tokens = map[string]string{}
	}
	s.tokens[tokenHash] = userID
	return nil
}

func (s *memoryResetStore) Consume(ctx context.Context, tokenHash string) (string, error) {
	id, ok := s.tokens[tokenHash]
	if !ok {
		return "", redis.Nil
	}
	delete(s.tokens, tokenHash)
	return id, nil
}

type fixedVersion int64

func (v fixedVersion) Version(ctx context.Context) int64 { return int64(v) }

type memoryCacheRepo struct {
	mu       sync.Mutex
	values   map[string][]byte
	counters map[string]int64
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}, counters: map[string]int64{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryCacheRepo) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memoryCacheRepo) Counter(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }
