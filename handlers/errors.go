package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/services"
)

// respondError maps service errors onto HTTP responses. Validation failures
// carry the full error list so the client can mark every offending field.
func respondError(c echo.Context, log *slog.Logger, err error) error {
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"status": "error",
			"errors": verrs,
		})
	}

	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrRaceNotFound),
		errors.Is(err, status.ErrRegistrationNotFound),
		errors.Is(err, status.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"status": "error", "message": err.Error(),
		})

	case errors.Is(err, status.ErrRegistrationClosed):
		return c.JSON(http.StatusConflict, map[string]string{
			"status": "error", "message": err.Error(),
		})

	case errors.Is(err, status.ErrPackageNotInRace),
		errors.Is(err, status.ErrSpecialPriceNotInRace),
		errors.Is(err, status.ErrRoleNotInRaceType),
		errors.Is(err, status.ErrTermsNotAccepted):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "error", "message": err.Error(),
		})

	case errors.Is(err, status.ErrProviderUnavailable):
		return c.JSON(http.StatusBadGateway, map[string]string{
			"status": "error", "message": err.Error(),
		})
	}

	log.Error("request failed", slog.String("path", c.Request().URL.Path), slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"status": "error", "message": "internal error",
	})
}
