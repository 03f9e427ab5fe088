package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/session"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

// ContextUserKey is the gin context key storing the session principal.
const ContextUserKey = "currentUser"

const contextTokenKey = "sessionToken"

type sessionReader interface {
	Read(c *gin.Context) (*models.SessionUser, error)
	Token(c *gin.Context) string
}

// Authenticator decodes the session token once per request and exposes the
// route guards built on it.
type Authenticator struct {
	sessions sessionReader
	logger   *zap.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(sessions sessionReader, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{sessions: sessions, logger: logger}
}

func (a *Authenticator) authenticate(c *gin.Context) (*models.SessionUser, error) {
	if user := CurrentUser(c); user != nil {
		return user, nil
	}
	user, err := a.sessions.Read(c)
	if err != nil {
		return nil, err
	}
	c.Set(ContextUserKey, user)
	c.Set(contextTokenKey, a.sessions.Token(c))
	return user, nil
}

// RequireSession rejects requests without a valid session with 401.
func (a *Authenticator) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := a.authenticate(c); err != nil {
			msg := "authentication required"
			if errors.Is(err, session.ErrInvalidToken) {
				msg = "session is invalid or expired"
			}
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, msg))
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalSession attaches the principal when a valid session is present but never blocks.
func (a *Authenticator) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _ = a.authenticate(c)
		c.Next()
	}
}

// DashboardGuardConfig lists the dashboard paths reachable without a session.
// AssetPaths are prefixes of the static bundle directories.
type DashboardGuardConfig struct {
	LoginPath   string
	PublicPaths []string
	AssetPaths  []string
}

// DashboardGuard redirects unauthenticated page requests to the login page,
// carrying the original path in the redirect query parameter. The configured
// asset prefixes and public paths pass through.
func (a *Authenticator) DashboardGuard(cfg DashboardGuardConfig) gin.HandlerFunc {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/dashboard/login"
	}
	public := append([]string{cfg.LoginPath}, cfg.PublicPaths...)
	public = append(public, cfg.AssetPaths...)

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if isPublicPath(p, public) {
			c.Next()
			return
		}
		if _, err := a.authenticate(c); err != nil {
			a.logger.Debug("dashboard redirect to login", zap.String("path", p), zap.Error(err))
			c.Redirect(http.StatusFound, cfg.LoginPath+"?redirect="+url.QueryEscape(p))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the principal attached by the session middleware, or nil.
func CurrentUser(c *gin.Context) *models.SessionUser {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.SessionUser)
	return user
}

// SessionToken returns the raw token the request authenticated with.
func SessionToken(c *gin.Context) string {
	return c.GetString(contextTokenKey)
}

func isPublicPath(p string, public []string) bool {
	p = strings.TrimRight(p, "/")
	for _, allowed := range public {
		allowed = strings.TrimRight(allowed, "/")
		if allowed == "" {
			continue
		}
		if p == allowed || strings.HasPrefix(p, allowed+"/") {
			return true
		}
	}
	return false
}
