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

// GetEvent loads a single event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var ev models.Event
	err := s.db.Select("*").From("event").Where(dbx.HashExp{"id": id}).One(&ev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListOpenEvents returns events currently open for registration, applying
// the availability window and the paid-athlete capacity check.
func (s *Store) ListOpenEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.db.Select("*").
		From("event").
		Where(dbx.HashExp{"is_available": true}).
		OrderBy("date ASC").
		All(&events)
	if err != nil {
		return nil, err
	}

	open := events[:0]
	for _, ev := range events {
		paid, err := s.CountPaidAthletes(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		if ev.IsRegistrationOpen(now, paid) {
			open = append(open, ev)
		}
	}
	return open, nil
}

// CountPaidAthletes counts athletes on paid registrations for an event.
func (s *Store) CountPaidAthletes(ctx context.Context, eventID string) (int, error) {
	var n int
	err := s.db.NewQuery(
		`SELECT COUNT(a.id) FROM athlete a
		 JOIN registration r ON a.registration_id = r.id
		 WHERE r.event_id = {:event} AND r.payment_status = {:paid}`,
	).Bind(dbx.Params{"event": eventID, "paid": models.PaymentStatusPaid}).Row(&n)
	return n, err
}

// GetTerms returns the current terms document of an event, or nil when the
// event has none.
func (s *Store) GetTerms(ctx context.Context, eventID string) (*models.TermsAndConditions, error) {
	var terms models.TermsAndConditions
	err := s.db.Select("*").
		From("terms_and_conditions").
		Where(dbx.HashExp{"event_id": eventID}).
		OrderBy("created_at DESC").
		One(&terms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &terms, nil
}

// ListPickUpPoints returns the package pickup locations of an event.
func (s *Store) ListPickUpPoints(ctx context.Context, eventID string) ([]models.PickUpPoint, error) {
	var points []models.PickUpPoint
	err := s.db.Select("*").
		From("pickup_point").
		Where(dbx.HashExp{"event_id": eventID}).
		OrderBy("name ASC").
		All(&points)
	return points, err
}

// CreateEvent persists a new event.
func (s *Store) CreateEvent(ctx context.Context, ev *models.Event) error {
	return s.db.Model(ev).Insert()
}

// CreatePickUpPoint persists a new pickup point.
func (s *Store) CreatePickUpPoint(ctx context.Context, p *models.PickUpPoint) error {
	return s.db.Model(p).Insert()
}

// CreateTerms persists a new terms version for an event.
func (s *Store) CreateTerms(ctx context.Context, t *models.TermsAndConditions) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return s.db.Model(t).Insert()
}
