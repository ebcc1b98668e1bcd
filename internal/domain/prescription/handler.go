package prescription

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrx/medrx/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the prescription endpoints under the session-token
// middleware.
func (h *Handler) RegisterRoutes(api *echo.Group, sessMW echo.MiddlewareFunc) {
	g := api.Group("/prescriptions", sessMW)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/cancel", h.Cancel)
}

type createRequest struct {
	PatientID   string           `json:"patientId"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Diagnosis   *string          `json:"diagnosis"`
	Medications []MedicationItem `json:"medications"`
}

func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	p, err := h.svc.Create(ctx, ident.UserID, &CreateInput{
		PatientID:   patientID,
		ExpiresAt:   req.ExpiresAt,
		Diagnosis:   req.Diagnosis,
		Medications: req.Medications,
	})
	switch {
	case errors.Is(err, ErrNotDoctor):
		return echo.NewHTTPError(http.StatusForbidden, "user is not authorized to create prescriptions")
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create prescription")
	}
	return c.JSON(http.StatusCreated, toResponse(p))
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}

	out, err := h.svc.ListFor(ctx, ident.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not retrieve prescriptions")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}

	resp, err := h.svc.Get(ctx, id, ident.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "you are not authorized to view this prescription")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not retrieve prescription")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate session credentials")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}

	resp, err := h.svc.Cancel(ctx, id, ident.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "only the issuing doctor can cancel this prescription")
	case errors.Is(err, ErrNotActive):
		return echo.NewHTTPError(http.StatusBadRequest, "prescription is not in ACTIVE state")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "could not cancel prescription")
	}
	return c.JSON(http.StatusOK, resp)
}
