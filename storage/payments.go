package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/models"
)

// CreatePayment inserts a payment inside tx.
func (s *Store) CreatePayment(tx dbx.Builder, p *models.Payment) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return tx.Model(p).Insert()
}

// GetPayment loads a payment by id.
func (s *Store) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return s.onePayment(dbx.HashExp{"id": id})
}

// GetPaymentByOrderCode looks a payment up by the provider-assigned order
// code, the key webhooks identify transactions by.
func (s *Store) GetPaymentByOrderCode(ctx context.Context, orderCode string) (*models.Payment, error) {
	return s.onePayment(dbx.HashExp{"order_code": orderCode})
}

// GetPaymentByTransactionID looks a payment up by the provider transaction
// id, used by the status polling fallback.
func (s *Store) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return s.onePayment(dbx.HashExp{"transaction_id": transactionID})
}

func (s *Store) onePayment(where dbx.HashExp) (*models.Payment, error) {
	var p models.Payment
	err := s.db.Select("*").From("payment").Where(where).One(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetTransactionID stores the provider transaction id inside tx. Only an
// unset transaction id is ever written; callers guard against overwrites.
func (s *Store) SetTransactionID(tx dbx.Builder, paymentID, transactionID string) error {
	_, err := tx.Update("payment", dbx.Params{
		"transaction_id": transactionID,
		"updated_at":     time.Now().UTC(),
	}, dbx.And(
		dbx.HashExp{"id": paymentID},
		dbx.HashExp{"transaction_id": nil},
	)).Execute()
	return err
}

// SetPaymentStatus writes the payment status inside tx. Re-setting the same
// status is a harmless no-op, which keeps webhook replays safe.
func (s *Store) SetPaymentStatus(tx dbx.Builder, paymentID, paymentStatus string) error {
	_, err := tx.Update("payment", dbx.Params{
		"status":     paymentStatus,
		"updated_at": time.Now().UTC(),
	}, dbx.HashExp{"id": paymentID}).Execute()
	return err
}
