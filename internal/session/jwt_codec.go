package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

// Claims is the JWT payload carrying the session principal.
type Claims struct {
	User models.SessionUser `json:"user"`
	jwt.RegisteredClaims
}

// JWTCodec signs sessions as HS256 JWTs.
type JWTCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTCodec constructs a JWTCodec.
func NewJWTCodec(secret, issuer string, ttl time.Duration) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Encode signs user into a token valid for the configured TTL.
func (c *JWTCodec) Encode(user models.SessionUser) (string, time.Time, error) {
	issuedAt := c.now().UTC()
	expiresAt := issuedAt.Add(c.ttl)
	claims := &Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies the signature, issuer and expiry of token.
func (c *JWTCodec) Decode(token string) (*models.SessionUser, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.User.ID == "" || claims.User.ID != claims.Subject {
		return nil, ErrInvalidToken
	}
	if claims.User.Permissions.Menus == nil {
		claims.User.Permissions.Menus = []string{}
	}
	return &claims.User, nil
}
