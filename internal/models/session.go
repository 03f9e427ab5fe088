package models

// SessionUser is the principal embedded in the session token. It never carries
// the password hash.
type SessionUser struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	Avatar      *string     `json:"avatar"`
	Phone       *string     `json:"phone"`
	IsActive    bool        `json:"is_active"`
	Permissions Permissions `json:"permissions"`
}

// NewSessionUser projects a user row and its resolved permissions into a session principal.
func NewSessionUser(u *User, perms Permissions) SessionUser {
	if perms.Menus == nil {
		perms.Menus = []string{}
	}
	return SessionUser{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Avatar:      u.Avatar,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		Permissions: perms,
	}
}

// Reasons reported when a session is not (or no longer) authenticated.
const (
	SessionReasonNoSession = "no_session"
	SessionReasonInvalid   = "invalid_session"
	SessionReasonNotFound  = "not_found"
	SessionReasonInactive  = "inactive"
)

// SessionState is the body of the session validate and refresh endpoints.
type SessionState struct {
	Authenticated bool         `json:"authenticated"`
	User          *SessionUser `json:"user,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}
