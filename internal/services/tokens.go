package services

import (
	"time"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenIssuer signs and verifies the HS256 access and refresh tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

func NewTokenIssuer(accessSecret, refreshSecret string) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

func (t *TokenIssuer) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// AccessToken carries the user's id, username and roles.
func (t *TokenIssuer) AccessToken(u *models.User) (string, error) {
	claims := models.AccessClaims{UserInfo: u.Identity(), RegisteredClaims: t.registered(AccessTokenTTL)}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
}

// RefreshToken carries only the username.
func (t *TokenIssuer) RefreshToken(u *models.User) (string, error) {
	claims := models.RefreshClaims{Username: u.Username, RegisteredClaims: t.registered(RefreshTokenTTL)}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
}

func (t *TokenIssuer) ParseAccess(token string) (models.Identity, error) {
	claims := &models.AccessClaims{}
	if err := t.parse(token, claims, t.accessSecret); err != nil {
		return models.Identity{}, err
	}
	return claims.UserInfo, nil
}

// ParseRefresh returns the username a valid refresh token was issued to.
func (t *TokenIssuer) ParseRefresh(token string) (string, error) {
	claims := &models.RefreshClaims{}
	if err := t.parse(token, claims, t.refreshSecret); err != nil {
		return "", err
	}
	return claims.Username, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, secret []byte) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return errors.Wrap(ErrForbidden, "invalid token")
	}
	if !parsed.Valid {
		return errors.Wrap(ErrForbidden, "invalid token")
	}
	return nil
}
