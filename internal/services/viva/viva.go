package viva

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erictragoustis/vuvoregs/services"
)

// Provider adapts the Viva Wallet client to the payment service.
type Provider struct {
	client *Client
}

func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// CreateOrder creates a hosted-checkout order. Amounts are sent in cents.
func (p *Provider) CreateOrder(ctx context.Context, order *services.PaymentOrder) (string, error) {
	req := &orderRequest{
		Amount:         order.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		CustomerTrns:   order.Description,
		SourceCode:     p.client.sourceCode,
		PaymentTimeout: 1800,
	}
	req.Customer.Email = order.Email
	req.Customer.FullName = order.CustomerName
	req.Customer.Phone = order.Phone
	req.Customer.CountryCode = "GR"
	req.Customer.RequestLang = "en-GB"

	return p.client.createOrder(ctx, req)
}

// CheckoutURL returns the hosted checkout page for an order code.
func (p *Provider) CheckoutURL(orderCode string) string {
	return fmt.Sprintf("%s/web/checkout?ref=%s", p.client.checkoutURL, orderCode)
}
