package drug

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultLimit = 10

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the drug search endpoint. identMW accepts either a
// session token or raw gateway credentials, so the search works during
// onboarding before a session is established.
func (h *Handler) RegisterRoutes(api *echo.Group, identMW echo.MiddlewareFunc) {
	api.GET("/drugs/search", h.Search, identMW)
}

type searchResponse struct {
	Items []Brand `json:"items"`
}

func (h *Handler) Search(c echo.Context) error {
	q := c.QueryParam("q")

	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = parsed
	}

	items, err := h.svc.Search(c.Request().Context(), q, limit)
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, "query must be 2-128 characters and limit between 1 and 25")
	case errors.Is(err, ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search temporarily unavailable")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	if items == nil {
		items = []Brand{}
	}
	return c.JSON(http.StatusOK, searchResponse{Items: items})
}
