package models

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,basic_email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse is returned on a successful login alongside the session cookie.
type LoginResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	User        SessionUser `json:"user"`
	MenuVersion int64       `json:"menu_version"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,nefield=OldPassword"`
}

// ForgotPasswordRequest initiates the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,basic_email"`
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UpdateProfileRequest carries the self-editable profile fields.
type UpdateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=120"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
	Phone  *string `json:"phone" validate:"omitempty,max=30"`
}

// MessageResponse is a bare {message} body.
type MessageResponse struct {
	Message string `json:"message"`
}

// RequestMeta identifies the client making a call, for auditing.
type RequestMeta struct {
	IP        string
	UserAgent string
}
