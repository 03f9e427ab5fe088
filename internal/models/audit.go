package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionSessionRevoked = "SESSION_REVOKED"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionPasswordReset  = "PASSWORD_RESET"
	AuditActionProfileUpdate  = "PROFILE_UPDATE"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionRoleCreate     = "ROLE_CREATE"
	AuditActionRoleUpdate     = "ROLE_UPDATE"
	AuditActionRoleDelete     = "ROLE_DELETE"
	AuditActionMenuCreate     = "MENU_CREATE"
	AuditActionMenuUpdate     = "MENU_UPDATE"
	AuditActionMenuDelete     = "MENU_DELETE"
	AuditActionBackendWrite   = "BACKEND_WRITE"
	AuditActionExport         = "AUDIT_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	Resource    string    `db:"resource" json:"resource"`
	ResourceID  *string   `db:"resource_id" json:"resource_id,omitempty"`
	Description string    `db:"description" json:"description"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	UserAgent   string    `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter narrows audit log listings and exports.
type AuditFilter struct {
	Action   string
	UserID   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// AuditExportRequest asks for a downloadable audit log export.
type AuditExportRequest struct {
	Format string     `json:"format" validate:"omitempty,oneof=csv pdf"`
	Action string     `json:"action" validate:"omitempty,max=50"`
	UserID string     `json:"user_id" validate:"omitempty,uuid"`
	From   *time.Time `json:"from"`
	To     *time.Time `json:"to"`
}

// AuditExport describes a generated export file.
type AuditExport struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
