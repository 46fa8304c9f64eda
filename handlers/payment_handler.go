package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/erictragoustis/vuvoregs/internal/services/viva"
	"github.com/erictragoustis/vuvoregs/services"
)

// WebhookAuth holds the optional basic-auth credentials Viva can be
// configured to send with webhook deliveries. SecretHash is a bcrypt hash,
// never the plain secret.
type WebhookAuth struct {
	Username   string
	SecretHash string
}

func (a WebhookAuth) enabled() bool { return a.Username != "" && a.SecretHash != "" }

type PaymentHandler struct {
	payments        *services.PaymentService
	verificationKey string
	webhookAuth     WebhookAuth
	log             *slog.Logger
}

func NewPaymentHandler(payments *services.PaymentService, verificationKey string, auth WebhookAuth, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:        payments,
		verificationKey: verificationKey,
		webhookAuth:     auth,
		log:             log,
	}
}

// CreatePayment - POST /api/v1/registrations/:registrationId/payment
// Creates (or returns the still-pending) gateway order for a registration
// and hands back the checkout URL the client redirects to.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	registrationID := c.PathParam("registrationId")

	payment, checkoutURL, err := h.payments.CreatePayment(ctx, registrationID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":       "success",
		"payment":      payment,
		"checkout_url": checkoutURL,
	})
}

// CheckStatus - GET /api/v1/payments/:transactionId/status
// Answers the post-checkout poll loop: confirmed (with redirect), waiting,
// or not_found.
func (h *PaymentHandler) CheckStatus(c echo.Context) error {
	ctx := c.Request().Context()
	transactionID := c.PathParam("transactionId")

	st, err := h.payments.CheckStatus(ctx, transactionID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, st)
}

// Webhook - POST /webhooks/viva
// Receives transaction outcome events. A malformed body is answered with
// 500 and the parse error so the provider retries the delivery; an unknown
// order code is a 404.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	if h.webhookAuth.enabled() {
		user, secret, ok := c.Request().BasicAuth()
		if !ok || user != h.webhookAuth.Username || !viva.VerifySecret(h.webhookAuth.SecretHash, secret) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"status": "error", "message": "unauthorized",
			})
		}
	}

	var ev services.WebhookEvent
	if err := json.NewDecoder(c.Request().Body).Decode(&ev); err != nil {
		h.log.Error("malformed webhook body", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": fmt.Sprintf("could not parse webhook body: %v", err),
		})
	}

	if err := h.payments.HandleWebhook(c.Request().Context(), ev); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// WebhookVerify - GET /webhooks/viva
// Viva calls this once when the webhook URL is registered and expects the
// configured verification key back.
func (h *PaymentHandler) WebhookVerify(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"Key": h.verificationKey})
}
