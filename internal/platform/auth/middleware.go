package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Identity is the authenticated caller as resolved from a session token.
type Identity struct {
	UserID          uuid.UUID
	ExternalSubject string
}

// SessionMiddleware verifies the bearer session token and stores the resolved
// identity on the request context.
func SessionMiddleware(sessions *SessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := sessions.Verify(c.Request().Context(), tokenStr)
			if err != nil {
				return sessionError(err)
			}

			userID, _ := uuid.Parse(claims.Subject)
			ident := &Identity{UserID: userID, ExternalSubject: claims.ExternalSubject}
			ctx := context.WithValue(c.Request().Context(), identityKey, ident)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// IdentityMiddleware accepts either a session token or upstream credential
// claims. The session token is tried first; on failure the bearer token is
// decoded as a gateway-verified credential.
func IdentityMiddleware(sessions *SessionManager, cfg CredentialConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			if claims, err := sessions.Verify(ctx, tokenStr); err == nil {
				userID, _ := uuid.Parse(claims.Subject)
				ident := &Identity{UserID: userID, ExternalSubject: claims.ExternalSubject}
				ctx = context.WithValue(ctx, identityKey, ident)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}

			cred, err := DecodeCredential(tokenStr, cfg)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
			}
			ctx = context.WithValue(ctx, credentialKey, cred)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// IdentityFromContext returns the session identity stored by SessionMiddleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*Identity)
	return ident, ok
}

func sessionError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "session token has expired")
	case errors.Is(err, ErrBadAudience):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token audience")
	default:
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}
}
