package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RegistrationStatusPending   = "pending"
	RegistrationStatusCompleted = "completed"
	RegistrationStatusFailed    = "failed"

	PaymentStatusNotPaid = "not_paid"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Registration is the aggregate root grouping the athletes submitted
// together. TotalAmount is derived from the athletes and is only
// recomputed when explicitly asked for, after the athlete set is final.
type Registration struct {
	ID            string          `db:"id" json:"id"`
	EventID       string          `db:"event_id" json:"event_id"`
	Status        string          `db:"status" json:"status"`
	PaymentStatus string          `db:"payment_status" json:"payment_status"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	AgreesToTerms bool            `db:"agrees_to_terms" json:"agrees_to_terms"`
	AgreedTermsID sql.NullString  `db:"agreed_terms_id" json:"-"`
	PaymentID     sql.NullString  `db:"payment_id" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

func (r *Registration) TableName() string { return "registration" }

// IsPaid reports whether payment completed successfully.
func (r *Registration) IsPaid() bool { return r.PaymentStatus == PaymentStatusPaid }

// MarkPaid sets the terminal paid state. Idempotent; re-marking a paid
// registration is a no-op.
func (r *Registration) MarkPaid() {
	r.PaymentStatus = PaymentStatusPaid
	r.Status = RegistrationStatusCompleted
}

// MarkFailed sets the terminal failed state. Idempotent. There is no
// transition back out of failed.
func (r *Registration) MarkFailed() {
	r.PaymentStatus = PaymentStatusFailed
	r.Status = RegistrationStatusFailed
}
