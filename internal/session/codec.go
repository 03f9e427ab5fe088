package session

import (
	"errors"
	"time"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/pkg/config"
)

var (
	// ErrNoSession means the request carried no session token.
	ErrNoSession = errors.New("no session")
	// ErrInvalidToken covers malformed, tampered and expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
)

// Codec turns a session principal into a signed token and back.
type Codec interface {
	Encode(user models.SessionUser) (token string, expiresAt time.Time, err error)
	Decode(token string) (*models.SessionUser, error)
}

// NewCodec builds the codec selected by cfg.Codec.
func NewCodec(cfg config.SessionConfig) (Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.Codec == config.SessionCodecSecureCookie {
		return NewSecureCookieCodec(cfg.CookieName, cfg.Secret, cfg.EncryptionKey, cfg.TTL), nil
	}
	return NewJWTCodec(cfg.Secret, cfg.Issuer, cfg.TTL), nil
}
