package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	credentialKey contextKey = "credential"
	identityKey   contextKey = "identity"
)

// Credential holds the claims of the externally-issued identity token. The
// upstream gateway has already verified the signature; this layer only checks
// the claim shape (issuer, non-empty subject) before trusting it.
type Credential struct {
	Subject  string
	Phone    string
	Email    string
	ClientID string
}

// CredentialConfig describes the upstream credential issuer.
type CredentialConfig struct {
	// Issuer, when set, must match the token's iss claim exactly.
	Issuer string
}

// DecodeCredential extracts the credential claims from a bearer token without
// verifying its signature, and validates issuer and subject.
func DecodeCredential(tokenStr string, cfg CredentialConfig) (*Credential, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrInvalid
	}

	if cfg.Issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss != cfg.Issuer {
			return nil, ErrInvalid
		}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrMissingSubject
	}

	cred := &Credential{Subject: sub}
	if phone, ok := claims["phone_number"].(string); ok {
		cred.Phone = phone
	}
	if email, ok := claims["email"].(string); ok {
		cred.Email = email
	}
	if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 {
		cred.ClientID = aud[0]
	}

	return cred, nil
}

// CredentialMiddleware extracts the upstream credential claims from the
// Authorization header and stores them on the request context. Handlers read
// them back with CredentialFromContext.
func CredentialMiddleware(cfg CredentialConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}

			cred, err := DecodeCredential(tokenStr, cfg)
			if errors.Is(err, ErrMissingSubject) {
				return echo.NewHTTPError(http.StatusBadRequest, "subject missing from token")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
			}

			ctx := context.WithValue(c.Request().Context(), credentialKey, cred)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// CredentialFromContext returns the credential stored by CredentialMiddleware.
func CredentialFromContext(ctx context.Context) (*Credential, bool) {
	cred, ok := ctx.Value(credentialKey).(*Credential)
	return cred, ok
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return parts[1], nil
}
