package models

import (
	"time"

	"github.com/lib/pq"
)

// MenuItem is a dashboard navigation entry.
type MenuItem struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Label      string         `db:"label" json:"label"`
	Icon       string         `db:"icon" json:"icon"`
	Path       string         `db:"path" json:"path"`
	ParentID   *string        `db:"parent_id" json:"parent_id,omitempty"`
	OrderIndex int            `db:"order_index" json:"order_index"`
	IsActive   bool           `db:"is_active" json:"is_active"`
	Roles      pq.StringArray `db:"roles" json:"roles" swaggertype:"array,string"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// VisibleMenus is the ordered menu list for a principal plus the menu schema version.
type VisibleMenus struct {
	Version int64      `json:"version"`
	Items   []MenuItem `json:"items"`
}

// CreateMenuItemRequest creates a menu item.
type CreateMenuItemRequest struct {
	Name       string   `json:"name" validate:"required,max=50"`
	Label      string   `json:"label" validate:"required,max=100"`
	Icon       string   `json:"icon" validate:"max=50"`
	Path       string   `json:"path" validate:"required,max=255"`
	ParentID   *string  `json:"parent_id" validate:"omitempty,uuid"`
	OrderIndex int      `json:"order_index" validate:"gte=0"`
	IsActive   *bool    `json:"is_active"`
	Roles      []string `json:"roles"`
}

// UpdateMenuItemRequest updates a menu item. Nil fields are left untouched.
type UpdateMenuItemRequest struct {
	Label      *string   `json:"label" validate:"omitempty,max=100"`
	Icon       *string   `json:"icon" validate:"omitempty,max=50"`
	Path       *string   `json:"path" validate:"omitempty,max=255"`
	ParentID   *string   `json:"parent_id" validate:"omitempty,uuid"`
	OrderIndex *int      `json:"order_index" validate:"omitempty,gte=0"`
	IsActive   *bool     `json:"is_active"`
	Roles      *[]string `json:"roles"`
}
