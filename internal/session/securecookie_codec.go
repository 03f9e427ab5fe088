package session

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

type cookiePayload struct {
	User      models.SessionUser `json:"user"`
	ExpiresAt int64              `json:"exp"`
}

// SecureCookieCodec stores sessions as gorilla/securecookie values: HMAC signed,
// and AES encrypted when an encryption key is configured.
type SecureCookieCodec struct {
	name string
	sc   *securecookie.SecureCookie
	ttl  time.Duration
	now  func() time.Time
}

// NewSecureCookieCodec constructs a SecureCookieCodec. name must match the cookie name.
func NewSecureCookieCodec(name, secret, encryptionKey string, ttl time.Duration) *SecureCookieCodec {
	var blockKey []byte
	if encryptionKey != "" {
		sum := sha256.Sum256([]byte(encryptionKey))
		blockKey = sum[:]
	}
	sc := securecookie.New([]byte(secret), blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(ttl.Seconds()))

	return &SecureCookieCodec{name: name, sc: sc, ttl: ttl, now: time.Now}
}

// Encode serialises user with an embedded expiry.
func (c *SecureCookieCodec) Encode(user models.SessionUser) (string, time.Time, error) {
	expiresAt := c.now().UTC().Add(c.ttl).Truncate(time.Second)
	value, err := c.sc.Encode(c.name, cookiePayload{User: user, ExpiresAt: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode session cookie: %w", err)
	}
	return value, expiresAt, nil
}

// Decode verifies and decodes token.
func (c *SecureCookieCodec) Decode(token string) (*models.SessionUser, error) {
	var payload cookiePayload
	if err := c.sc.Decode(c.name, token, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if payload.User.ID == "" || c.now().Unix() > payload.ExpiresAt {
		return nil, ErrInvalidToken
	}
	if payload.User.Permissions.Menus == nil {
		payload.User.Permissions.Menus = []string{}
	}
	return &payload.User, nil
}
