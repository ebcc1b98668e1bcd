package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func credentialToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	// The gateway verifies the signature upstream; any key works here.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("gateway"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestDecodeCredential(t *testing.T) {
	token := credentialToken(t, jwt.MapClaims{
		"sub":          "cognito-sub-1",
		"iss":          "https://issuer.example.com/pool",
		"aud":          "patient-client",
		"phone_number": "+911234567890",
		"email":        "pat@example.com",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})

	cred, err := DecodeCredential(token, CredentialConfig{Issuer: "https://issuer.example.com/pool"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.Subject != "cognito-sub-1" {
		t.Errorf("subject: got %s", cred.Subject)
	}
	if cred.ClientID != "patient-client" {
		t.Errorf("client id: got %s", cred.ClientID)
	}
	if cred.Phone != "+911234567890" || cred.Email != "pat@example.com" {
		t.Errorf("contact claims not carried: %+v", cred)
	}
}

func TestDecodeCredential_MissingSubject(t *testing.T) {
	token := credentialToken(t, jwt.MapClaims{"aud": "patient-client"})

	if _, err := DecodeCredential(token, CredentialConfig{}); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("expected ErrMissingSubject, got %v", err)
	}
}

func TestDecodeCredential_WrongIssuer(t *testing.T) {
	token := credentialToken(t, jwt.MapClaims{
		"sub": "s", "iss": "https://evil.example.com",
	})

	if _, err := DecodeCredential(token, CredentialConfig{Issuer: "https://issuer.example.com/pool"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestDecodeCredential_Garbage(t *testing.T) {
	if _, err := DecodeCredential("garbage", CredentialConfig{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestCredentialMiddleware(t *testing.T) {
	e := echo.New()
	token := credentialToken(t, jwt.MapClaims{"sub": "sub-1", "aud": "doctor-client"})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *Credential
	handler := CredentialMiddleware(CredentialConfig{})(func(c echo.Context) error {
		got, _ = CredentialFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Subject != "sub-1" || got.ClientID != "doctor-client" {
		t.Errorf("credential not stored on context: %+v", got)
	}
}

func TestCredentialMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := CredentialMiddleware(CredentialConfig{})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
