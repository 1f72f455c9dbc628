package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenLifetime is returned when a freshly signed token has no
// remaining lifetime (clock skew or misconfigured TTL). The caller must
// not complete login/signup when this happens.
var ErrTokenLifetime = errors.New("token lifetime is not positive")

// Claims asserted by issued tokens. The id/username keys are part of the
// API contract with existing clients.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer signs time-bounded identity tokens and registers each one in the
// session registry with a TTL equal to its remaining validity.
type Issuer struct {
	secret   []byte
	ttl      time.Duration
	sessions SessionRegistry
	now      func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, sessions SessionRegistry) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		now:      time.Now,
	}
}

// Issue signs a token for the identity and writes it into the session
// registry, replacing any previous token for the same user.
func (i *Issuer) Issue(ctx context.Context, identity Identity) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		ID:       identity.ID,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   identity.ID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	// Mirror the remaining validity into the registry TTL. Recomputed
	// after signing so the registry entry never outlives the token.
	remaining := expiresAt.Sub(i.now())
	if remaining <= 0 {
		return "", time.Time{}, ErrTokenLifetime
	}

	if err := i.sessions.Set(ctx, identity.ID, token, remaining); err != nil {
		return "", time.Time{}, fmt.Errorf("register session: %w", err)
	}

	return token, expiresAt, nil
}

// Verifier checks token signatures and decodes claims.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates the signature and expiry and returns the decoded claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
