package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medrx/medrx/internal/platform/secrets"
)

type fakeUserChecker struct {
	existing map[uuid.UUID]bool
	err      error
}

func (f *fakeUserChecker) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[id], nil
}

func newTestManager(users *fakeUserChecker) *SessionManager {
	src := secrets.Static{"session-secret": "unit-test-secret"}
	return NewSessionManager(secrets.NewCached(src, 0), "session-secret", users)
}

func TestSession_IssueVerifyRoundtrip(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)
	ctx := context.Background()

	token, err := m.Issue(ctx, userID, "ext-sub-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.ExternalSubject != "ext-sub-1" {
		t.Errorf("expected external subject echoed, got %s", claims.ExternalSubject)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != SessionAudience {
		t.Errorf("expected audience %q, got %v", SessionAudience, claims.Audience)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != SessionTTL {
		t.Errorf("expected ttl %v, got %v", SessionTTL, ttl)
	}
}

func TestSession_Expired(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)
	ctx := context.Background()

	token, err := m.Issue(ctx, userID, "ext")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A verifier whose clock is past the expiry must reject the token even
	// though the signature is valid.
	late := newTestManager(users)
	late.now = func() time.Time { return time.Now().Add(SessionTTL + time.Minute) }

	if _, err := late.Verify(ctx, token); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestSession_BadAudience(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)
	ctx := context.Background()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{"other_audience"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Verify(ctx, token); !errors.Is(err, ErrBadAudience) {
		t.Errorf("expected ErrBadAudience, got %v", err)
	}
}

func TestSession_BadSignature(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)
	ctx := context.Background()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{SessionAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Verify(ctx, forged); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	if _, err := m.Verify(ctx, "not-even-a-token"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for garbage, got %v", err)
	}
}

func TestSession_DeletedUserRejected(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)
	ctx := context.Background()

	token, err := m.Issue(ctx, userID, "ext")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// User disappears between issue and verify. Same error class as a
	// forged token, so existence is not leaked.
	users.existing[userID] = false
	if _, err := m.Verify(ctx, token); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for deleted user, got %v", err)
	}
}

func TestSession_UserLookupFailureRejected(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)
	ctx := context.Background()

	token, _ := m.Issue(ctx, userID, "ext")
	users.err = errors.New("store down")

	if _, err := m.Verify(ctx, token); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid on lookup failure, got %v", err)
	}
}
