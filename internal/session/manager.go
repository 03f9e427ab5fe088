package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/pkg/config"
)

// Manager binds a Codec to the session cookie.
type Manager struct {
	codec  Codec
	name   string
	maxAge int
	secure bool
}

// NewManager constructs a Manager from the session configuration.
func NewManager(codec Codec, cfg config.SessionConfig) *Manager {
	name := cfg.CookieName
	if name == "" {
		name = "auth-token"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{codec: codec, name: name, maxAge: int(ttl.Seconds()), secure: cfg.Secure}
}

// CookieName returns the session cookie name.
func (m *Manager) CookieName() string {
	return m.name
}

// Issue encodes user and sets it as the session cookie. The token is returned
// for clients that prefer a bearer header.
func (m *Manager) Issue(c *gin.Context, user models.SessionUser) (string, error) {
	token, _, err := m.codec.Encode(user)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.name, token, m.maxAge, "/", "", m.secure, true)
	return token, nil
}

// Clear deletes the session cookie.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.name, "", -1, "/", "", m.secure, true)
}

// Token returns the raw session token from the cookie, falling back to a bearer header.
func (m *Manager) Token(c *gin.Context) string {
	if v, err := c.Cookie(m.name); err == nil && v != "" {
		return v
	}
	return BearerToken(c.GetHeader("Authorization"))
}

// Read decodes the request's session. It returns ErrNoSession when no token is
// present and ErrInvalidToken when the token does not verify.
func (m *Manager) Read(c *gin.Context) (*models.SessionUser, error) {
	token := m.Token(c)
	if token == "" {
		return nil, ErrNoSession
	}
	return m.codec.Decode(token)
}

// BearerToken extracts the token of an "Authorization: Bearer" header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
