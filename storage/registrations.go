package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/models"
)

// CreateRegistration inserts the aggregate root inside tx.
func (s *Store) CreateRegistration(tx dbx.Builder, reg *models.Registration) error {
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = now
	return tx.Model(reg).Insert()
}

// InsertAthlete inserts one athlete inside tx.
func (s *Store) InsertAthlete(tx dbx.Builder, a *models.Athlete) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Selected == nil {
		a.Selected = models.OptionSelections{}
	}
	return tx.Model(a).Insert()
}

// UpdateRegistrationTotal stores a recomputed total inside tx.
func (s *Store) UpdateRegistrationTotal(tx dbx.Builder, registrationID string, total decimal.Decimal) error {
	_, err := tx.Update("registration", dbx.Params{
		"total_amount": total,
		"updated_at":   time.Now().UTC(),
	}, dbx.HashExp{"id": registrationID}).Execute()
	return err
}

// GetRegistration loads a registration by id.
func (s *Store) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.Select("*").From("registration").Where(dbx.HashExp{"id": id}).One(&reg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetRegistrationByPaymentID finds the registration linked to a payment.
func (s *Store) GetRegistrationByPaymentID(ctx context.Context, paymentID string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.Select("*").
		From("registration").
		Where(dbx.HashExp{"payment_id": paymentID}).
		One(&reg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListAthletes returns the athletes of a registration in insertion order.
func (s *Store) ListAthletes(ctx context.Context, registrationID string) ([]models.Athlete, error) {
	var athletes []models.Athlete
	err := s.db.Select("*").
		From("athlete").
		Where(dbx.HashExp{"registration_id": registrationID}).
		OrderBy("created_at ASC", "id ASC").
		All(&athletes)
	return athletes, err
}

// CountAthletes counts the athletes attached to a registration.
func (s *Store) CountAthletes(ctx context.Context, registrationID string) (int, error) {
	var n int
	err := s.db.Select("COUNT(id)").
		From("athlete").
		Where(dbx.HashExp{"registration_id": registrationID}).
		Row(&n)
	return n, err
}

// SaveTermsAgreement records that the user agreed to the given terms
// version. termsID may be empty when the event carries no terms document.
func (s *Store) SaveTermsAgreement(ctx context.Context, registrationID, termsID string) error {
	params := dbx.Params{
		"agrees_to_terms": true,
		"updated_at":      time.Now().UTC(),
	}
	if termsID != "" {
		params["agreed_terms_id"] = termsID
	}
	_, err := s.db.Update("registration", params, dbx.HashExp{"id": registrationID}).Execute()
	return err
}

// LinkPayment attaches a payment one-to-one to a registration inside tx.
func (s *Store) LinkPayment(tx dbx.Builder, registrationID, paymentID string) error {
	_, err := tx.Update("registration", dbx.Params{
		"payment_id": paymentID,
		"updated_at": time.Now().UTC(),
	}, dbx.HashExp{"id": registrationID}).Execute()
	return err
}

// SetRegistrationOutcome writes status and payment_status together inside
// tx, keeping the two in lockstep for terminal transitions.
func (s *Store) SetRegistrationOutcome(tx dbx.Builder, registrationID, regStatus, paymentStatus string) error {
	_, err := tx.Update("registration", dbx.Params{
		"status":         regStatus,
		"payment_status": paymentStatus,
		"updated_at":     time.Now().UTC(),
	}, dbx.HashExp{"id": registrationID}).Execute()
	return err
}

// SetBibNumber assigns a bib number to an athlete. The one mutation allowed
// after payment.
func (s *Store) SetBibNumber(ctx context.Context, athleteID, bib string) error {
	_, err := s.db.Update("athlete", dbx.Params{"bib_number": bib}, dbx.HashExp{"id": athleteID}).Execute()
	return err
}
