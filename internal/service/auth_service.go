package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/repository"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type roleFinder interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
}

type resetTokenStore interface {
	Save(ctx context.Context, tokenHash, userID string, ttl time.Duration) error
	Consume(ctx context.Context, tokenHash string) (string, error)
}

type menuVersioner interface {
	Version(ctx context.Context) int64
}

// Notifier delivers password reset links.
type Notifier interface {
	SendPasswordReset(ctx context.Context, user *models.User, link string) error
}

// LogNotifier writes reset links to the log instead of sending mail.
type LogNotifier struct {
	Logger *zap.Logger
}

// SendPasswordReset logs the reset link.
func (n LogNotifier) SendPasswordReset(_ context.Context, user *models.User, link string) error {
	if n.Logger != nil {
		n.Logger.Info("password reset link issued", zap.String("user_id", user.ID), zap.String("link", link))
	}
	return nil
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	ResetTokenTTL time.Duration
	ResetURL      string
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming runs a bcrypt comparison against a fixed hash so that the
// unknown-email branch costs the same as a wrong password.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("iqrolife-timing-equalizer"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// AuthService provides authentication use cases.
type AuthService struct {
	users     authUserRepository
	roles     roleFinder
	resets    resetTokenStore
	menus     menuVersioner
	audit     auditRecorder
	notifier  Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, roles roleFinder, resets resetTokenStore, menus menuVersioner, audit auditRecorder, notifier Notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		users:     users,
		roles:     roles,
		resets:    resets,
		menus:     menus,
		audit:     audit,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Login verifies credentials and returns the session principal with resolved permissions.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordLogin(OutcomeInvalid)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required and email must be valid")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			equalizeTiming(req.Password)
			s.metrics.RecordLogin(OutcomeInvalidCredentials)
			return nil, appErrors.ErrInvalidCredentials
		}
		s.metrics.RecordLogin(OutcomeError)
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if !user.IsActive {
		s.metrics.RecordLogin(OutcomeDisabled)
		return nil, appErrors.ErrInactiveAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordLogin(OutcomeInvalidCredentials)
		return nil, appErrors.ErrInvalidCredentials
	}

	perms, err := s.permissionsFor(ctx, user)
	if err != nil {
		s.metrics.RecordLogin(OutcomeError)
		return nil, err
	}

	s.audit.Record(ctx, auditEntry(user.ID, models.AuditActionLogin, "auth", user.ID,
		fmt.Sprintf("%s logged in", user.Email), models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}))
	s.metrics.RecordLogin(OutcomeSuccess)

	return &models.LoginResponse{
		Success:     true,
		Message:     "login successful",
		User:        models.NewSessionUser(user, perms),
		MenuVersion: s.menus.Version(ctx),
	}, nil
}

// Refresh reloads the principal from the store and re-resolves its permissions.
// A non-empty reason means the session must be dropped.
func (s *AuthService) Refresh(ctx context.Context, userID string) (*models.SessionUser, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordRefresh(models.SessionReasonNotFound)
			return nil, models.SessionReasonNotFound, nil
		}
		s.metrics.RecordRefresh(OutcomeError)
		return nil, "", appErrors.Internal(err, "failed to load user")
	}
	if !user.IsActive {
		s.metrics.RecordRefresh(models.SessionReasonInactive)
		s.audit.Record(ctx, auditEntry(user.ID, models.AuditActionSessionRevoked, "auth", user.ID,
			"session dropped for inactive account", models.RequestMeta{}))
		return nil, models.SessionReasonInactive, nil
	}

	perms, err := s.permissionsFor(ctx, user)
	if err != nil {
		s.metrics.RecordRefresh(OutcomeError)
		return nil, "", err
	}
	s.metrics.RecordRefresh(OutcomeSuccess)
	principal := models.NewSessionUser(user, perms)
	return &principal, "", nil
}

// Logout records the logout of principal. The session itself is stateless.
func (s *AuthService) Logout(ctx context.Context, principal *models.SessionUser, meta models.RequestMeta) {
	if principal == nil {
		return
	}
	s.audit.Record(ctx, auditEntry(principal.ID, models.AuditActionLogout, "auth", principal.ID,
		fmt.Sprintf("%s logged out", principal.Email), meta))
}

// ChangePassword changes the password for the given user ID.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	if err := s.setPassword(ctx, userID, req.NewPassword); err != nil {
		return err
	}

	s.audit.Record(ctx, auditEntry(userID, models.AuditActionPasswordChange, "auth", userID, "password changed", meta))
	return nil
}

// ForgotPassword issues a reset link for an active account. It reports success
// for unknown or inactive emails too.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a valid email is required")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("forgot password lookup failed", zap.Error(err))
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}

	token, err := newResetToken()
	if err != nil {
		s.logger.Warn("failed to generate reset token", zap.Error(err))
		return nil
	}
	if err := s.resets.Save(ctx, hashResetToken(token), user.ID, s.config.ResetTokenTTL); err != nil {
		s.logger.Warn("failed to store reset token", zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, user, s.resetLink(token)); err != nil {
		s.logger.Warn("failed to deliver reset link", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}

	userID, err := s.resets.Consume(ctx, hashResetToken(req.Token))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.Clone(appErrors.ErrValidation, "reset token is invalid or expired")
		}
		if errors.Is(err, repository.ErrResetUnavailable) {
			return appErrors.Clone(appErrors.ErrValidation, "reset token is invalid or expired")
		}
		return appErrors.Internal(err, "failed to verify reset token")
	}

	if err := s.setPassword(ctx, userID, req.NewPassword); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrValidation, "reset token is invalid or expired")
		}
		return err
	}

	s.audit.Record(ctx, auditEntry(userID, models.AuditActionPasswordReset, "auth", userID, "password reset via token", meta))
	return nil
}

// UpdateProfile edits the principal's own profile and returns the refreshed principal.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest, meta models.RequestMeta) (*models.SessionUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, appErrors.ErrInactiveAccount
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Avatar != nil {
		user.Avatar = emptyToNil(*req.Avatar)
	}
	if req.Phone != nil {
		user.Phone = emptyToNil(*req.Phone)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to update profile")
	}

	perms, err := s.permissionsFor(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditEntry(userID, models.AuditActionProfileUpdate, "users", userID, "profile updated", meta))
	principal := models.NewSessionUser(user, perms)
	return &principal, nil
}

func (s *AuthService) permissionsFor(ctx context.Context, user *models.User) (models.Permissions, error) {
	role, err := s.roles.FindByName(ctx, user.Role)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Permissions{}, appErrors.Internal(err, "failed to load role")
		}
		role = nil
	}
	return ResolvePermissions(user.Role, role), nil
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash), time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to update password")
	}
	return nil
}

func (s *AuthService) resetLink(token string) string {
	base := s.config.ResetURL
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func emptyToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
