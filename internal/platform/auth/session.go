package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionAudience is the audience claim stamped on every session token.
const SessionAudience = "api_access"

// SessionTTL is how long an issued session token stays valid.
const SessionTTL = 60 * time.Minute

// Session verification failures. A token whose subject no longer resolves is
// reported as ErrInvalid, the same class as a forged token, so callers cannot
// probe whether a user ever existed.
var (
	ErrExpired        = errors.New("session token has expired")
	ErrBadAudience    = errors.New("invalid session token audience")
	ErrInvalid        = errors.New("invalid session token")
	ErrMissingSubject = errors.New("subject missing from token")
)

// SessionClaims is the payload of a self-issued session token. Subject carries
// the internal user id; ExternalSubject echoes the upstream identity subject.
type SessionClaims struct {
	jwt.RegisteredClaims
	ExternalSubject string `json:"ext_sub"`
}

// SecretFetcher supplies the current HS256 signing secret. Implemented by
// secrets.Cached so key refresh happens on the cache's schedule, not once per
// process lifetime.
type SecretFetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// UserChecker reports whether an internal user id still resolves to a stored
// user record.
type UserChecker interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// SessionManager issues and verifies session tokens.
type SessionManager struct {
	secrets    SecretFetcher
	secretName string
	users      UserChecker
	now        func() time.Time
}

func NewSessionManager(secrets SecretFetcher, secretName string, users UserChecker) *SessionManager {
	return &SessionManager{
		secrets:    secrets,
		secretName: secretName,
		users:      users,
		now:        time.Now,
	}
}

// Issue mints a session token for the resolved internal user id.
func (m *SessionManager) Issue(ctx context.Context, userID uuid.UUID, externalSubject string) (string, error) {
	secret, err := m.secrets.Fetch(ctx, m.secretName)
	if err != nil {
		return "", fmt.Errorf("fetch signing secret: %w", err)
	}

	now := m.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{SessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
		ExternalSubject: externalSubject,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, audience and expiry, then confirms the subject
// still resolves to a stored user.
func (m *SessionManager) Verify(ctx context.Context, tokenStr string) (*SessionClaims, error) {
	secret, err := m.secrets.Fetch(ctx, m.secretName)
	if err != nil {
		return nil, fmt.Errorf("fetch signing secret: %w", err)
	}

	claims := &SessionClaims{}
	_, err = jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(SessionAudience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrBadAudience
		default:
			return nil, ErrInvalid
		}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalid
	}

	// Liveness: a structurally valid token for a since-deleted user is
	// treated exactly like a forged one.
	exists, err := m.users.UserExists(ctx, userID)
	if err != nil || !exists {
		return nil, ErrInvalid
	}

	return claims, nil
}
