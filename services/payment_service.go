package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/models"
	"github.com/erictragoustis/vuvoregs/monitoring"
	"github.com/erictragoustis/vuvoregs/storage"
	"github.com/erictragoustis/vuvoregs/utils"
)

// Viva webhook event type codes.
const (
	WebhookTransactionPaid   = 1796
	WebhookTransactionFailed = 1798
)

// PaymentOrder carries everything the gateway needs to create an order.
type PaymentOrder struct {
	Amount       decimal.Decimal
	Currency     string
	Description  string
	CustomerName string
	Email        string
	Phone        string
}

// PaymentProvider abstracts the payment gateway. CreateOrder returns the
// provider-assigned order code.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, order *PaymentOrder) (string, error)
	CheckoutURL(orderCode string) string
}

// WebhookEvent is the payload the provider posts on transaction outcomes.
type WebhookEvent struct {
	EventTypeID int `json:"EventTypeId"`
	EventData   struct {
		TransactionID string `json:"TransactionId"`
		OrderCode     string `json:"OrderCode"`
	} `json:"EventData"`
}

// PaymentStatus is what the client-side poller sees.
type PaymentStatus struct {
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PaymentService creates gateway orders and reconciles their outcomes from
// webhooks. Recent statuses are cached in Redis so the browser poll loop
// stays off the database.
type PaymentService struct {
	store     *storage.Store
	provider  PaymentProvider
	breaker   *utils.CircuitBreaker
	redis     *redis.Client
	notifier  Notifier
	monitor   *monitoring.Monitor
	log       *slog.Logger
	statusTTL time.Duration
	baseURL   string
}

func NewPaymentService(
	store *storage.Store,
	provider PaymentProvider,
	redisClient *redis.Client,
	notifier Notifier,
	monitor *monitoring.Monitor,
	log *slog.Logger,
	statusTTL time.Duration,
	baseURL string,
) *PaymentService {
	return &PaymentService{
		store:     store,
		provider:  provider,
		breaker:   utils.NewCircuitBreaker("viva"),
		redis:     redisClient,
		notifier:  notifier,
		monitor:   monitor,
		log:       log,
		statusTTL: statusTTL,
		baseURL:   baseURL,
	}
}

// CreatePayment creates a gateway order for a registration and returns the
// payment with its checkout URL. Terms must be accepted first. Calling again
// once a payment is linked returns the existing one instead of creating a
// second order.
func (s *PaymentService) CreatePayment(ctx context.Context, registrationID string) (*models.Payment, string, error) {
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, "", err
	}
	if !reg.AgreesToTerms {
		return nil, "", status.ErrTermsNotAccepted
	}

	// A registration carries at most one payment. Re-invocation always hands
	// back the linked payment's redirect, whatever its status, so a resolved
	// registration can never place a second gateway order.
	if reg.PaymentID.Valid {
		existing, err := s.store.GetPayment(ctx, reg.PaymentID.String)
		if err != nil {
			return nil, "", err
		}
		return existing, s.provider.CheckoutURL(existing.OrderCode), nil
	}

	athletes, err := s.store.ListAthletes(ctx, registrationID)
	if err != nil {
		return nil, "", err
	}

	order := &PaymentOrder{
		Amount:      reg.TotalAmount,
		Currency:    "EUR",
		Description: fmt.Sprintf("Registration %s (%d athletes)", reg.ID, len(athletes)),
	}
	if len(athletes) > 0 {
		order.CustomerName = athletes[0].FullName()
		order.Email = athletes[0].Email
		order.Phone = athletes[0].Phone
	}

	start := time.Now()
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.provider.CreateOrder(ctx, order)
	})
	s.monitor.TrackGatewayRequest("create_order", time.Since(start))
	if err != nil {
		s.monitor.TrackPaymentOrder("error")
		s.log.Error("gateway order failed", slog.String("registration_id", reg.ID), slog.Any("error", err))
		return nil, "", fmt.Errorf("%w: %v", status.ErrProviderUnavailable, err)
	}
	orderCode := result.(string)

	id, err := utils.GenerateCode(8)
	if err != nil {
		return nil, "", err
	}
	payment := &models.Payment{
		ID:           id,
		OrderCode:    orderCode,
		Status:       models.PaymentStatusWaiting,
		Total:        reg.TotalAmount,
		Currency:     order.Currency,
		Description:  order.Description,
		BillingName:  order.CustomerName,
		BillingEmail: order.Email,
		BillingPhone: order.Phone,
	}

	err = s.store.Transactional(func(tx dbx.Builder) error {
		if err := s.store.CreatePayment(tx, payment); err != nil {
			return err
		}
		return s.store.LinkPayment(tx, reg.ID, payment.ID)
	})
	if err != nil {
		return nil, "", err
	}

	s.monitor.TrackPaymentOrder("created")
	s.log.Info("payment order created",
		slog.String("registration_id", reg.ID),
		slog.String("payment_id", payment.ID),
		slog.String("order_code", orderCode),
	)

	return payment, s.provider.CheckoutURL(orderCode), nil
}

// HandleWebhook reconciles one provider delivery. Unknown order codes return
// ErrPaymentNotFound; unknown event types are acknowledged and ignored.
// Deliveries are idempotent: replaying an event neither flips state twice
// nor re-fires notifications.
func (s *PaymentService) HandleWebhook(ctx context.Context, ev WebhookEvent) error {
	var target string
	switch ev.EventTypeID {
	case WebhookTransactionPaid:
		target = models.PaymentStatusConfirmed
	case WebhookTransactionFailed:
		target = models.PaymentStatusError
	default:
		s.log.Info("ignoring webhook event", slog.Int("event_type", ev.EventTypeID))
		s.monitor.TrackWebhookEvent(fmt.Sprint(ev.EventTypeID), "ignored")
		return nil
	}

	payment, err := s.store.GetPaymentByOrderCode(ctx, ev.EventData.OrderCode)
	if err != nil {
		s.monitor.TrackWebhookEvent(fmt.Sprint(ev.EventTypeID), "unknown_order")
		return err
	}

	reg, err := s.store.GetRegistrationByPaymentID(ctx, payment.ID)
	if err != nil {
		return err
	}

	if payment.TransactionID.Valid {
		if ev.EventData.TransactionID != "" && payment.TransactionID.String != ev.EventData.TransactionID {
			s.log.Warn("webhook transaction id mismatch",
				slog.String("payment_id", payment.ID),
				slog.String("stored", payment.TransactionID.String),
				slog.String("received", ev.EventData.TransactionID),
			)
		}
	}

	if payment.Status == target {
		// Replay of an already applied event.
		s.monitor.TrackWebhookEvent(fmt.Sprint(ev.EventTypeID), "duplicate")
		return nil
	}

	regStatus, regPayment := models.RegistrationStatusCompleted, models.PaymentStatusPaid
	if target == models.PaymentStatusError {
		regStatus, regPayment = models.RegistrationStatusFailed, models.PaymentStatusFailed
	}

	err = s.store.Transactional(func(tx dbx.Builder) error {
		if !payment.TransactionID.Valid && ev.EventData.TransactionID != "" {
			if err := s.store.SetTransactionID(tx, payment.ID, ev.EventData.TransactionID); err != nil {
				return err
			}
		}
		if err := s.store.SetPaymentStatus(tx, payment.ID, target); err != nil {
			return err
		}
		return s.store.SetRegistrationOutcome(tx, reg.ID, regStatus, regPayment)
	})
	if err != nil {
		return err
	}

	s.cacheStatus(ctx, ev.EventData.TransactionID, s.statusFor(target, reg.ID))
	s.notifier.NotifyPaymentStatus(reg.ID, target)
	s.monitor.TrackWebhookEvent(fmt.Sprint(ev.EventTypeID), "applied")
	s.log.Info("webhook applied",
		slog.String("payment_id", payment.ID),
		slog.String("registration_id", reg.ID),
		slog.String("status", target),
	)
	return nil
}

// CheckStatus answers the browser poll loop after checkout. It consults the
// Redis cache first and falls back to the database. Unknown transaction ids
// report not_found rather than erroring.
func (s *PaymentService) CheckStatus(ctx context.Context, transactionID string) (PaymentStatus, error) {
	key := statusCacheKey(transactionID)
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, key).Result(); err == nil {
			var st PaymentStatus
			if err := json.Unmarshal([]byte(raw), &st); err == nil {
				return st, nil
			}
		}
	}

	payment, err := s.store.GetPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, status.ErrPaymentNotFound) {
			return PaymentStatus{Status: "not_found"}, nil
		}
		return PaymentStatus{}, err
	}

	if !payment.IsConfirmed() {
		return PaymentStatus{Status: "waiting"}, nil
	}

	reg, err := s.store.GetRegistrationByPaymentID(ctx, payment.ID)
	if err != nil {
		return PaymentStatus{}, err
	}
	st := s.statusFor(payment.Status, reg.ID)
	s.cacheStatus(ctx, transactionID, st)
	return st, nil
}

// statusFor maps a stored payment status onto the poll response. The poll
// enum is confirmed|waiting|not_found; errored payments report waiting and
// the failure reaches the client through the realtime channel.
func (s *PaymentService) statusFor(paymentStatus, registrationID string) PaymentStatus {
	if paymentStatus == models.PaymentStatusConfirmed {
		return PaymentStatus{
			Status:      "confirmed",
			RedirectURL: fmt.Sprintf("%s/registrations/%s/success", s.baseURL, registrationID),
		}
	}
	return PaymentStatus{Status: "waiting"}
}

func (s *PaymentService) cacheStatus(ctx context.Context, transactionID string, st PaymentStatus) {
	if s.redis == nil || transactionID == "" {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, statusCacheKey(transactionID), raw, s.statusTTL).Err(); err != nil {
		s.log.Warn("status cache write failed", slog.Any("error", err))
	}
}

func statusCacheKey(transactionID string) string {
	return "payment:status:" + transactionID
}
