package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestSessionMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)

	token, err := m.Issue(context.Background(), userID, "ext-1")
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *Identity
	handler := SessionMiddleware(m)(func(c echo.Context) error {
		got, _ = IdentityFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.UserID != userID || got.ExternalSubject != "ext-1" {
		t.Errorf("identity not stored: %+v", got)
	}
}

func TestSessionMiddleware_ExpiredToken(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)

	token, _ := m.Issue(context.Background(), userID, "ext")
	m.now = func() time.Time { return time.Now().Add(SessionTTL + time.Minute) }

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := SessionMiddleware(m)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if he.Message != "session token has expired" {
		t.Errorf("expected expiry message, got %v", he.Message)
	}
}

func TestIdentityMiddleware_CredentialFallback(t *testing.T) {
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{}}
	m := newTestManager(users)

	// Not a session token: falls back to gateway credential decoding.
	cred, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cognito-sub", "aud": "patient-client",
	}).SignedString([]byte("gateway"))
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/drugs/search", nil)
	req.Header.Set("Authorization", "Bearer "+cred)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *Credential
	handler := IdentityMiddleware(m, CredentialConfig{})(func(c echo.Context) error {
		got, _ = CredentialFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Subject != "cognito-sub" {
		t.Errorf("credential not stored: %+v", got)
	}
}

func TestIdentityMiddleware_SessionPreferred(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserChecker{existing: map[uuid.UUID]bool{userID: true}}
	m := newTestManager(users)

	token, _ := m.Issue(context.Background(), userID, "ext")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/drugs/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var ident *Identity
	handler := IdentityMiddleware(m, CredentialConfig{})(func(c echo.Context) error {
		ident, _ = IdentityFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident == nil || ident.UserID != userID {
		t.Errorf("expected session identity, got %+v", ident)
	}
}
