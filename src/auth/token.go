package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/snapwall/snapwall/src/oops"
)

var ErrBadToken = errors.New("invalid session token")

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signs a session id into the value stored in the session cookie.
func EncodeSessionToken(secretKey, sessionID string, expiresAt time.Time) (string, error) {
	if secretKey == "" {
		return "", oops.New(nil, "cannot sign session token without a secret key")
	}

	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		return "", oops.New(err, "failed to sign session token")
	}
	return signed, nil
}

// Verifies a session cookie value and returns the session id inside it. Any
// tampered, expired, or foreign token yields ErrBadToken.
func DecodeSessionToken(secretKey, token string) (string, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrBadToken
		}
		return []byte(secretKey), nil
	})
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return "", ErrBadToken
	}
	return claims.SessionID, nil
}
