package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"secure-auth/internal/domain"
)

var (
	// ErrTokenExpired indicates a structurally valid token past its expiration.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates a string that is not a token at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid indicates a bad signature or otherwise unacceptable token.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims binds an account and its role to a signed, time-bounded token.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
}

// Issuer creates and verifies signed session tokens. The signing key is fixed
// for the lifetime of the process.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token asserting the account's identity and role, expiring
// after the configured validity window.
func (i *Issuer) Issue(accountID string, role domain.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		AccountID: accountID,
		Role:      role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiration and returns the embedded claims.
// It consults nothing but the token and the signing key, so tokens issued for
// since-deleted accounts verify until they expire.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
