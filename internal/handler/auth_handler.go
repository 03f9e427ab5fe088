package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/service"
	"github.com/iqrolife/iqrolife-api/internal/session"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service and the session cookie.
type AuthHandler struct {
	service  *service.AuthService
	sessions *session.Manager
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{service: svc, sessions: sessions}
}

// Login godoc
// @Summary Authenticate user
// @Description Verify email and password, resolve permissions and set the session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.sessions.Issue(c, res.User); err != nil {
		response.Error(c, appErrors.Internal(err, "failed to issue session"))
		return
	}

	response.Plain(c, http.StatusOK, res)
}

// Session godoc
// @Summary Validate session
// @Description Decode the session cookie without touching the store
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.SessionState
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	user, err := h.sessions.Read(c)
	if err != nil {
		response.Plain(c, http.StatusOK, models.SessionState{Authenticated: false})
		return
	}
	response.Plain(c, http.StatusOK, models.SessionState{Authenticated: true, User: user})
}

// RefreshSession godoc
// @Summary Refresh session
// @Description Re-read the user and its role, then re-issue or delete the session cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.SessionState
// @Failure 500 {object} response.Envelope
// @Router /auth/session/refresh [post]
func (h *AuthHandler) RefreshSession(c *gin.Context) {
	current, err := h.sessions.Read(c)
	if err != nil {
		reason := models.SessionReasonNoSession
		if errors.Is(err, session.ErrInvalidToken) {
			reason = models.SessionReasonInvalid
			h.sessions.Clear(c)
		}
		response.Plain(c, http.StatusOK, models.SessionState{Reason: reason})
		return
	}

	fresh, reason, err := h.service.Refresh(c.Request.Context(), current.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if reason != "" {
		h.sessions.Clear(c)
		response.Plain(c, http.StatusOK, models.SessionState{Reason: reason})
		return
	}
	if _, err := h.sessions.Issue(c, *fresh); err != nil {
		response.Error(c, appErrors.Internal(err, "failed to issue session"))
		return
	}
	response.Plain(c, http.StatusOK, models.SessionState{Authenticated: true, User: fresh})
}

// Logout godoc
// @Summary Logout
// @Description Delete the session cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if user, err := h.sessions.Read(c); err == nil {
		h.service.Logout(c.Request.Context(), user, requestMeta(c))
	}
	h.sessions.Clear(c)
	response.Plain(c, http.StatusOK, models.MessageResponse{Message: "logged out"})
}

// ForgotPassword godoc
// @Summary Request password reset
// @Description Always accepted for a well-formed email; a link is sent only to active accounts
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ForgotPasswordRequest true "Email"
// @Success 202 {object} models.MessageResponse
// @Failure 400 {object} response.Envelope
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.ForgotPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Plain(c, http.StatusAccepted, models.MessageResponse{Message: "if the account exists, a reset link has been sent"})
}

// ResetPassword godoc
// @Summary Reset password
// @Description Consume a reset token and set a new password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} response.Envelope
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Plain(c, http.StatusOK, models.MessageResponse{Message: "password has been reset"})
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password payload"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := principal(c)
	if user == nil {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), user.ID, req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Plain(c, http.StatusOK, models.MessageResponse{Message: "password updated"})
}

// UpdateProfile godoc
// @Summary Update own profile
// @Description Update name, avatar and phone of the current user and re-issue the session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user := principal(c)
	if user == nil {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	updated, err := h.service.UpdateProfile(c.Request.Context(), user.ID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.sessions.Issue(c, *updated); err != nil {
		response.Error(c, appErrors.Internal(err, "failed to issue session"))
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
