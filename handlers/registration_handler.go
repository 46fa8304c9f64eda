package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/erictragoustis/vuvoregs/services"
)

type RegistrationHandler struct {
	registrations *services.RegistrationService
	log           *slog.Logger
}

func NewRegistrationHandler(registrations *services.RegistrationService, log *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, log: log}
}

// Register - POST /api/v1/races/:raceId/register
// Creates a registration with its athletes. The whole submission either
// persists or is rejected; validation problems come back as a list.
func (h *RegistrationHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	raceID := c.PathParam("raceId")

	var sub services.RegistrationSubmission
	if err := c.Bind(&sub); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "error", "message": "invalid request body",
		})
	}

	reg, athletes, err := h.registrations.Register(ctx, raceID, sub)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"status":       "success",
		"registration": reg,
		"athletes":     athletes,
	})
}

// ConfirmTerms - POST /api/v1/registrations/:registrationId/confirm
func (h *RegistrationHandler) ConfirmTerms(c echo.Context) error {
	ctx := c.Request().Context()
	registrationID := c.PathParam("registrationId")

	var req struct {
		AgreesToTerms bool `json:"agrees_to_terms"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status": "error", "message": "invalid request body",
		})
	}

	if err := h.registrations.ConfirmTerms(ctx, registrationID, req.AgreesToTerms); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// GetRegistration - GET /api/v1/registrations/:registrationId
func (h *RegistrationHandler) GetRegistration(c echo.Context) error {
	ctx := c.Request().Context()
	registrationID := c.PathParam("registrationId")

	reg, athletes, err := h.registrations.GetRegistration(ctx, registrationID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"registration": reg,
		"athletes":     athletes,
	})
}
