package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/erictragoustis/vuvoregs/storage"
)

// LookupHandler serves the small read-only endpoints the registration form
// uses to populate dependent fields. Unknown ids yield empty lists so the
// form can simply render nothing.
type LookupHandler struct {
	store *storage.Store
	log   *slog.Logger
}

func NewLookupHandler(store *storage.Store, log *slog.Logger) *LookupHandler {
	return &LookupHandler{store: store, log: log}
}

// PackageOptions - GET /api/v1/packages/:packageId/options
func (h *LookupHandler) PackageOptions(c echo.Context) error {
	ctx := c.Request().Context()
	packageID := c.PathParam("packageId")

	opts, err := h.store.ListPackageOptions(ctx, packageID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"package_options": opts})
}

// SpecialPrices - GET /api/v1/races/:raceId/special-prices
func (h *LookupHandler) SpecialPrices(c echo.Context) error {
	ctx := c.Request().Context()
	raceID := c.PathParam("raceId")

	prices, err := h.store.ListSpecialPrices(ctx, raceID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"special_prices": prices})
}

// PickUpPoints - GET /api/v1/events/:eventId/pickup-points
func (h *LookupHandler) PickUpPoints(c echo.Context) error {
	ctx := c.Request().Context()
	eventID := c.PathParam("eventId")

	points, err := h.store.ListPickUpPoints(ctx, eventID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"pickup_points": points})
}

// Terms - GET /api/v1/events/:eventId/terms
func (h *LookupHandler) Terms(c echo.Context) error {
	ctx := c.Request().Context()
	eventID := c.PathParam("eventId")

	terms, err := h.store.GetTerms(ctx, eventID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if terms == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"status": "error", "message": "no terms published for this event",
		})
	}

	return c.JSON(http.StatusOK, terms)
}
