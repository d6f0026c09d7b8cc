package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. Access tokens are short so a stolen token ages out
// quickly; refresh tokens carry the session.
const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

// ErrInvalidToken covers expired, malformed, and wrong-kind tokens.
var ErrInvalidToken = errors.New("invalid token")

// tokenIssuer mints and verifies HS256 JWTs. The "typ" claim separates
// access from refresh tokens so one can never stand in for the other.
type tokenIssuer struct {
	secret []byte
}

func newTokenIssuer(secret string) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret)}
}

func (i *tokenIssuer) issue(userID, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": kind,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// IssuePair mints a fresh access+refresh token pair for a user.
func (i *tokenIssuer) IssuePair(userID string) (access, refresh string, err error) {
	if access, err = i.issue(userID, "access", accessTokenTTL); err != nil {
		return "", "", err
	}
	if refresh, err = i.issue(userID, "refresh", refreshTokenTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify checks signature, expiry, and token kind, returning the user id.
func (i *tokenIssuer) Verify(tokenString, kind string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", ErrInvalidToken
	}

	if typ, _ := claims["typ"].(string); typ != kind {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
