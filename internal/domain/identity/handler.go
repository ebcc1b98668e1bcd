package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/medrx/medrx/internal/platform/auth"
)

type Handler struct {
	svc             *Service
	sessions        *auth.SessionManager
	patientClientID string
	doctorClientID  string
}

func NewHandler(svc *Service, sessions *auth.SessionManager, patientClientID, doctorClientID string) *Handler {
	return &Handler{
		svc:             svc,
		sessions:        sessions,
		patientClientID: patientClientID,
		doctorClientID:  doctorClientID,
	}
}

// RegisterRoutes wires the identity endpoints. Login authenticates with the
// upstream credential; everything else requires a session token.
func (h *Handler) RegisterRoutes(api *echo.Group, credMW, sessMW echo.MiddlewareFunc) {
	api.POST("/auth/login", h.Login, credMW)
	api.GET("/users/me", h.Me, sessMW)
	api.POST("/users/complete-profile", h.CompleteProfile, sessMW)
	api.GET("/users/search", h.SearchPatients, sessMW)
}

// LoginResponse carries the session token alongside the resolved profile.
type LoginResponse struct {
	Message     string       `json:"message"`
	APIToken    string       `json:"api_token"`
	UserProfile *FullProfile `json:"user_profile"`
}

func (h *Handler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	cred, ok := auth.CredentialFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	}

	var role Role
	switch cred.ClientID {
	case h.patientClientID:
		role = RolePatient
	case h.doctorClientID:
		role = RoleDoctor
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid app client id in token")
	}

	user, err := h.svc.ResolveOrCreate(ctx, cred.Subject, cred.Phone, cred.Email, role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error during login")
	}

	token, err := h.sessions.Issue(ctx, user.ID, cred.Subject)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error during login")
	}

	profile, err := h.svc.FullProfile(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error during login")
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Message:     "Login successful.",
		APIToken:    token,
		UserProfile: profile,
	})
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}

	profile, err := h.svc.FullProfile(ctx, ident.UserID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not fetch profile")
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) CompleteProfile(c echo.Context) error {
	ctx := c.Request().Context()
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}

	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	profile, err := h.svc.UpdateProfile(ctx, ident.UserID, &upd)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not update profile")
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	ctx := c.Request().Context()
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}

	q := c.QueryParam("q")
	profiles, err := h.svc.SearchPatients(ctx, ident.UserID, q)
	if errors.Is(err, ErrForbidden) {
		return echo.NewHTTPError(http.StatusForbidden, "only doctors can search for patients")
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not search for patients")
	}
	return c.JSON(http.StatusOK, profiles)
}
