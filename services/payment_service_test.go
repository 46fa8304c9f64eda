package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/models"
	"github.com/erictragoustis/vuvoregs/monitoring"
	"github.com/erictragoustis/vuvoregs/storage"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateOrder(ctx context.Context, order *PaymentOrder) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CheckoutURL(orderCode string) string {
	return "https://pay.example.com/web/checkout?ref=" + orderCode
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyPaymentStatus(registrationID, paymentStatus string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, registrationID+":"+paymentStatus)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type paymentFixture struct {
	store    *storage.Store
	svc      *PaymentService
	provider *mockProvider
	notifier *recordingNotifier
	reg      *models.Registration
}

func newPaymentFixture(t *testing.T, confirmTerms bool) *paymentFixture {
	t.Helper()
	store := newTestStore(t)
	fx := seedRace(t, store)

	regSvc := newRegistrationService(store)
	reg, _, err := regSvc.Register(context.Background(), fx.race.ID, submission(2))
	require.NoError(t, err)
	if confirmTerms {
		require.NoError(t, regSvc.ConfirmTerms(context.Background(), reg.ID, true))
		reg, _, err = regSvc.GetRegistration(context.Background(), reg.ID)
		require.NoError(t, err)
	}

	provider := &mockProvider{}
	notifier := &recordingNotifier{}
	svc := NewPaymentService(
		store, provider, nil, notifier, monitoring.NewMonitor(nil), testLogger(),
		0, "https://races.example.com",
	)

	return &paymentFixture{store: store, svc: svc, provider: provider, notifier: notifier, reg: reg}
}

func TestCreatePayment_RequiresTerms(t *testing.T) {
	fx := newPaymentFixture(t, false)

	_, _, err := fx.svc.CreatePayment(context.Background(), fx.reg.ID)
	assert.ErrorIs(t, err, status.ErrTermsNotAccepted)
	fx.provider.AssertNotCalled(t, "CreateOrder")
}

func TestCreatePayment_CreatesOrderAndLinks(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("6543210987654321", nil).Once()

	payment, checkoutURL, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	assert.Equal(t, "6543210987654321", payment.OrderCode)
	assert.Equal(t, models.PaymentStatusWaiting, payment.Status)
	assert.True(t, fx.reg.TotalAmount.Equal(payment.Total))
	assert.Equal(t, "https://pay.example.com/web/checkout?ref=6543210987654321", checkoutURL)

	// The registration now points at the payment.
	reg, err := fx.store.GetRegistration(ctx, fx.reg.ID)
	require.NoError(t, err)
	require.True(t, reg.PaymentID.Valid)
	assert.Equal(t, payment.ID, reg.PaymentID.String)

	// Billing details came from the first athlete.
	order := fx.provider.Calls[0].Arguments.Get(1).(*PaymentOrder)
	assert.NotEmpty(t, order.CustomerName)
	assert.Equal(t, "EUR", order.Currency)

	fx.provider.AssertExpectations(t)
}

func TestCreatePayment_ReusesWaitingPayment(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("111222333", nil).Once()

	first, _, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	// A second attempt while the first order is still pending reuses it
	// instead of creating another order at the gateway.
	second, checkoutURL, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "https://pay.example.com/web/checkout?ref=111222333", checkoutURL)

	fx.provider.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestCreatePayment_ReusesResolvedPayment(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("333444555", nil).Once()

	first, _, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent(WebhookTransactionPaid, "333444555", "tx-done")))

	// Calling again after the payment is confirmed must not place a second
	// order at the gateway.
	second, checkoutURL, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.PaymentStatusConfirmed, second.Status)
	assert.Equal(t, "https://pay.example.com/web/checkout?ref=333444555", checkoutURL)

	fx.provider.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestCreatePayment_ProviderDown(t *testing.T) {
	fx := newPaymentFixture(t, true)

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("", assert.AnError)

	_, _, err := fx.svc.CreatePayment(context.Background(), fx.reg.ID)
	assert.ErrorIs(t, err, status.ErrProviderUnavailable)
}

func webhookEvent(eventType int, orderCode, txID string) WebhookEvent {
	var ev WebhookEvent
	ev.EventTypeID = eventType
	ev.EventData.OrderCode = orderCode
	ev.EventData.TransactionID = txID
	return ev
}

func TestHandleWebhook_ConfirmsPayment(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("777888999", nil).Once()
	payment, _, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent(WebhookTransactionPaid, "777888999", "tx-abc")))

	updated, err := fx.store.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, updated.Status)
	assert.Equal(t, "tx-abc", updated.TransactionID.String)

	reg, err := fx.store.GetRegistration(ctx, fx.reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusCompleted, reg.Status)
	assert.True(t, reg.IsPaid())

	assert.Equal(t, 1, fx.notifier.count())
}

func TestHandleWebhook_FailureEvent(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("121212", nil).Once()
	payment, _, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent(WebhookTransactionFailed, "121212", "tx-fail")))

	updated, err := fx.store.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusError, updated.Status)

	reg, err := fx.store.GetRegistration(ctx, fx.reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusFailed, reg.Status)
	assert.Equal(t, models.PaymentStatusFailed, reg.PaymentStatus)

	// The poll keeps reporting waiting; the failure reaches the client
	// through the realtime channel instead.
	st, err := fx.svc.CheckStatus(ctx, "tx-fail")
	require.NoError(t, err)
	assert.Equal(t, "waiting", st.Status)
	assert.Empty(t, st.RedirectURL)
}

func TestHandleWebhook_ReplayIsIdempotent(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("454545", nil).Once()
	payment, _, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	ev := webhookEvent(WebhookTransactionPaid, "454545", "tx-dup")
	require.NoError(t, fx.svc.HandleWebhook(ctx, ev))
	require.NoError(t, fx.svc.HandleWebhook(ctx, ev))

	updated, err := fx.store.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, updated.Status)
	assert.Equal(t, "tx-dup", updated.TransactionID.String)

	// Side effects fired exactly once.
	assert.Equal(t, 1, fx.notifier.count())
}

func TestHandleWebhook_UnknownOrderCode(t *testing.T) {
	fx := newPaymentFixture(t, true)

	err := fx.svc.HandleWebhook(context.Background(), webhookEvent(WebhookTransactionPaid, "no-such-order", "tx"))
	assert.ErrorIs(t, err, status.ErrPaymentNotFound)
}

func TestHandleWebhook_UnknownEventTypeIgnored(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("989898", nil).Once()
	payment, _, err := fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	// Acknowledged so the provider stops retrying, but nothing changes.
	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent(4242, "989898", "tx")))

	updated, err := fx.store.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaiting, updated.Status)
	assert.Zero(t, fx.notifier.count())
}

func TestCheckStatus(t *testing.T) {
	fx := newPaymentFixture(t, true)
	ctx := context.Background()

	st, err := fx.svc.CheckStatus(ctx, "unknown-tx")
	require.NoError(t, err)
	assert.Equal(t, "not_found", st.Status)

	fx.provider.On("CreateOrder", mock.Anything, mock.Anything).Return("606060", nil).Once()
	_, _, err = fx.svc.CreatePayment(ctx, fx.reg.ID)
	require.NoError(t, err)

	require.NoError(t, fx.svc.HandleWebhook(ctx, webhookEvent(WebhookTransactionPaid, "606060", "tx-606060")))

	st, err = fx.svc.CheckStatus(ctx, "tx-606060")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", st.Status)
	assert.Equal(t, "https://races.example.com/registrations/"+fx.reg.ID+"/success", st.RedirectURL)
}
