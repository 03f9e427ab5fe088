package models

import "time"

// Role labels with built-in permission defaults.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	Avatar       *string   `db:"avatar" json:"avatar"`
	Phone        *string   `db:"phone" json:"phone"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateUserRequest is the admin payload for a new account.
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,basic_email"`
	Name     string  `json:"name" validate:"required,max=120"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role" validate:"required,max=50"`
	IsActive *bool   `json:"is_active"`
	Avatar   *string `json:"avatar" validate:"omitempty,url"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
}

// UpdateUserRequest carries the admin-editable user fields. Nil fields are left untouched.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Role     *string `json:"role" validate:"omitempty,max=50"`
	IsActive *bool   `json:"is_active"`
	Avatar   *string `json:"avatar" validate:"omitempty,url"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
