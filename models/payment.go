package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusWaiting   = "waiting"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusError     = "error"
)

// Payment is one external payment-gateway transaction, linked one-to-one
// with a Registration. OrderCode is assigned by the provider when the order
// is created, before the checkout redirect; TransactionID arrives later via
// webhook.
type Payment struct {
	ID            string          `db:"id" json:"payment_id"`
	OrderCode     string          `db:"order_code" json:"order_code"`
	TransactionID sql.NullString  `db:"transaction_id" json:"-"`
	Status        string          `db:"status" json:"status"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Currency      string          `db:"currency" json:"currency"`
	Description   string          `db:"description" json:"description"`
	BillingName   string          `db:"billing_name" json:"billing_name"`
	BillingEmail  string          `db:"billing_email" json:"billing_email"`
	BillingPhone  string          `db:"billing_phone" json:"billing_phone"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

func (p *Payment) TableName() string { return "payment" }

// IsConfirmed reports whether the provider confirmed this payment.
func (p *Payment) IsConfirmed() bool { return p.Status == PaymentStatusConfirmed }
