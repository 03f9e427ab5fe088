package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PermissionFlag names one capability flag of a permission bundle.
type PermissionFlag string

const (
	PermAccessAll       PermissionFlag = "canAccessAll"
	PermManageUsers     PermissionFlag = "canManageUsers"
	PermManageRoles     PermissionFlag = "canManageRoles"
	PermManageStudents  PermissionFlag = "canManageStudents"
	PermManageForms     PermissionFlag = "canManageForms"
	PermManageFormsList PermissionFlag = "canManageFormsList"
	PermManageSettings  PermissionFlag = "canManageSettings"
	PermManageMenu      PermissionFlag = "canManageMenu"
	PermViewPortfolio   PermissionFlag = "canViewPortfolio"
)

// PermissionFlags lists every recognised flag.
var PermissionFlags = []PermissionFlag{
	PermAccessAll,
	PermManageUsers,
	PermManageRoles,
	PermManageStudents,
	PermManageForms,
	PermManageFormsList,
	PermManageSettings,
	PermManageMenu,
	PermViewPortfolio,
}

// Dashboard menu identifiers.
const (
	MenuHome         = "home"
	MenuCalonMurid   = "calon-murid"
	MenuFormulirList = "formulir-list"
	MenuFormulir     = "formulir"
	MenuPortofolio   = "portofolio"
	MenuKupon        = "kupon"
	MenuUsers        = "users"
	MenuRoles        = "roles"
	MenuMenu         = "menu"
	MenuSettings     = "settings"
)

// MenuIDs lists every known menu identifier.
var MenuIDs = []string{
	MenuHome,
	MenuCalonMurid,
	MenuFormulirList,
	MenuFormulir,
	MenuPortofolio,
	MenuKupon,
	MenuUsers,
	MenuRoles,
	MenuMenu,
	MenuSettings,
}

// Permissions is the resolved permission bundle carried in the session.
// Menus is never nil once produced by the resolver.
type Permissions struct {
	Menus              []string `json:"menus"`
	CanAccessAll       bool     `json:"canAccessAll"`
	CanManageUsers     bool     `json:"canManageUsers"`
	CanManageRoles     bool     `json:"canManageRoles"`
	CanManageStudents  bool     `json:"canManageStudents"`
	CanManageForms     bool     `json:"canManageForms"`
	CanManageFormsList bool     `json:"canManageFormsList"`
	CanManageSettings  bool     `json:"canManageSettings"`
	CanManageMenu      bool     `json:"canManageMenu"`
	CanViewPortfolio   bool     `json:"canViewPortfolio"`
}

// Flag reports the raw value of a single flag.
func (p Permissions) Flag(flag PermissionFlag) bool {
	switch flag {
	case PermAccessAll:
		return p.CanAccessAll
	case PermManageUsers:
		return p.CanManageUsers
	case PermManageRoles:
		return p.CanManageRoles
	case PermManageStudents:
		return p.CanManageStudents
	case PermManageForms:
		return p.CanManageForms
	case PermManageFormsList:
		return p.CanManageFormsList
	case PermManageSettings:
		return p.CanManageSettings
	case PermManageMenu:
		return p.CanManageMenu
	case PermViewPortfolio:
		return p.CanViewPortfolio
	}
	return false
}

// SetFlag sets a single flag; unknown flags are ignored.
func (p *Permissions) SetFlag(flag PermissionFlag, value bool) {
	switch flag {
	case PermAccessAll:
		p.CanAccessAll = value
	case PermManageUsers:
		p.CanManageUsers = value
	case PermManageRoles:
		p.CanManageRoles = value
	case PermManageStudents:
		p.CanManageStudents = value
	case PermManageForms:
		p.CanManageForms = value
	case PermManageFormsList:
		p.CanManageFormsList = value
	case PermManageSettings:
		p.CanManageSettings = value
	case PermManageMenu:
		p.CanManageMenu = value
	case PermViewPortfolio:
		p.CanViewPortfolio = value
	}
}

// Has reports whether the bundle grants flag, with canAccessAll granting everything.
func (p Permissions) Has(flag PermissionFlag) bool {
	return p.CanAccessAll || p.Flag(flag)
}

// CanSeeMenu reports whether menu id is visible to the bundle.
func (p Permissions) CanSeeMenu(id string) bool {
	if p.CanAccessAll {
		return true
	}
	for _, m := range p.Menus {
		if m == id {
			return true
		}
	}
	return false
}

// PermissionsDocument is the raw JSONB permissions column. It is kept untyped so
// that absent, null and malformed documents stay distinguishable.
type PermissionsDocument []byte

// Value stores the document, writing NULL when empty.
func (d PermissionsDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

// Scan reads a JSONB column.
func (d *PermissionsDocument) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append(PermissionsDocument(nil), v...)
	case string:
		*d = PermissionsDocument(v)
	default:
		return fmt.Errorf("unsupported type %T for PermissionsDocument", value)
	}
	return nil
}

// MarshalJSON emits the stored document verbatim, or null.
func (d PermissionsDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return []byte(d), nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (d *PermissionsDocument) UnmarshalJSON(data []byte) error {
	*d = append(PermissionsDocument(nil), data...)
	return nil
}

// NewPermissionsDocument encodes a typed bundle for storage.
func NewPermissionsDocument(p Permissions) (PermissionsDocument, error) {
	if p.Menus == nil {
		p.Menus = []string{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal permissions: %w", err)
	}
	return PermissionsDocument(data), nil
}

// Role is a named permission bundle from the roles table.
type Role struct {
	ID          string              `db:"id" json:"id"`
	Name        string              `db:"name" json:"name"`
	Description string              `db:"description" json:"description"`
	Permissions PermissionsDocument `db:"permissions" json:"permissions" swaggertype:"object"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// CreateRoleRequest is the admin payload for a new role.
type CreateRoleRequest struct {
	Name        string      `json:"name" validate:"required,max=50"`
	Description string      `json:"description" validate:"max=255"`
	Permissions Permissions `json:"permissions"`
}

// UpdateRoleRequest updates a role. Nil fields are left untouched.
type UpdateRoleRequest struct {
	Name        *string      `json:"name" validate:"omitempty,max=50"`
	Description *string      `json:"description" validate:"omitempty,max=255"`
	Permissions *Permissions `json:"permissions"`
}

// RolePreview shows the bundle a role label resolves to.
type RolePreview struct {
	Label       string      `json:"label"`
	RowFound    bool        `json:"row_found"`
	Permissions Permissions `json:"permissions"`
}
