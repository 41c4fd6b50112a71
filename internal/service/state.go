package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/and161185/graph-connector/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// StateSigner issues and verifies the OAuth "state" parameter as a short-lived HS256 JWT.
// No server-side storage is needed: the signature binds the state to this application.
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateSigner constructs a signer keyed by the application secret.
func NewStateSigner(key []byte, ttl time.Duration) *StateSigner {
	return &StateSigner{key: key, ttl: ttl, now: time.Now}
}

// Issue returns a signed state for the given flow name.
func (s *StateSigner) Issue(flow string) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   flow,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks signature and expiry and returns the flow name the state was issued for.
func (s *StateSigner) Verify(state string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidState, err)
	}
	return claims.Subject, nil
}
