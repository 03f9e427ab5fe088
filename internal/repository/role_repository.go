package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

const roleColumns = `id, name, description, permissions, created_at, updated_at`

// RoleRepository provides database access for roles.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByName returns the role whose name matches case-insensitively.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE LOWER(name) = LOWER($1) LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

// FindByID returns a role by identifier.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1 LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role by id: %w", err)
	}
	return &role, nil
}

// List returns every role ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	roles := make([]models.Role, 0)
	if err := r.db.SelectContext(ctx, &roles, `SELECT `+roleColumns+` FROM roles ORDER BY LOWER(name)`); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// Create inserts a role. A case-insensitive name clash yields ErrDuplicate.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	const query = `INSERT INTO roles (id, name, description, permissions, created_at, updated_at) VALUES (:id, :name, :description, :permissions, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// Update writes name, description and permissions.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	role.UpdatedAt = time.Now().UTC()
	const query = `UPDATE roles SET name = :name, description = :description, permissions = :permissions, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, role)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update role: %w", err)
	}
	return requireAffected(res, "update role")
}

// Delete removes a role row.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return requireAffected(res, "delete role")
}

// CountUsers returns how many users carry the role label.
func (r *RoleRepository) CountUsers(ctx context.Context, name string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE LOWER(role) = LOWER($1)`, name); err != nil {
		return 0, fmt.Errorf("count role users: %w", err)
	}
	return n, nil
}
