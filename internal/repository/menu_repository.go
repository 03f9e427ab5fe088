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

const menuColumns = `id, name, label, icon, path, parent_id, order_index, is_active, roles, created_at, updated_at`

// MenuRepository provides database access for dashboard menu items.
type MenuRepository struct {
	db *sqlx.DB
}

// NewMenuRepository constructs a MenuRepository.
func NewMenuRepository(db *sqlx.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// ListActive returns active items in display order.
func (r *MenuRepository) ListActive(ctx context.Context) ([]models.MenuItem, error) {
	items := make([]models.MenuItem, 0)
	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE is_active = TRUE ORDER BY order_index ASC, name ASC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list active menu items: %w", err)
	}
	return items, nil
}

// List returns every item in display order.
func (r *MenuRepository) List(ctx context.Context) ([]models.MenuItem, error) {
	items := make([]models.MenuItem, 0)
	query := `SELECT ` + menuColumns + ` FROM menu_items ORDER BY order_index ASC, name ASC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

// FindByID returns a menu item by identifier.
func (r *MenuRepository) FindByID(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.GetContext(ctx, &item, `SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find menu item: %w", err)
	}
	return &item, nil
}

// Create inserts a menu item. A taken name yields ErrDuplicate.
func (r *MenuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	const query = `INSERT INTO menu_items (id, name, label, icon, path, parent_id, order_index, is_active, roles, created_at, updated_at) VALUES (:id, :name, :label, :icon, :path, :parent_id, :order_index, :is_active, :roles, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create menu item: %w", err)
	}
	return nil
}

// Update writes every mutable column of a menu item.
func (r *MenuRepository) Update(ctx context.Context, item *models.MenuItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE menu_items SET label = :label, icon = :icon, path = :path, parent_id = :parent_id, order_index = :order_index, is_active = :is_active, roles = :roles, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	return requireAffected(res, "update menu item")
}

// Delete removes a menu item.
func (r *MenuRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return requireAffected(res, "delete menu item")
}
