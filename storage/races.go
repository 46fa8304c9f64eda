package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/models"
)

// GetRace loads a race with its type, required roles, time windows (in
// ascending start-date order) and special prices.
func (s *Store) GetRace(ctx context.Context, id string) (*models.Race, error) {
	var race models.Race
	err := s.db.Select("*").From("race").Where(dbx.HashExp{"id": id}).One(&race)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrRaceNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRaceRelations(&race); err != nil {
		return nil, err
	}
	return &race, nil
}

// ListRaces returns an event's races with relations loaded.
func (s *Store) ListRaces(ctx context.Context, eventID string) ([]models.Race, error) {
	var races []models.Race
	err := s.db.Select("*").
		From("race").
		Where(dbx.HashExp{"event_id": eventID}).
		OrderBy("name ASC").
		All(&races)
	if err != nil {
		return nil, err
	}
	for i := range races {
		if err := s.loadRaceRelations(&races[i]); err != nil {
			return nil, err
		}
	}
	return races, nil
}

func (s *Store) loadRaceRelations(race *models.Race) error {
	var rt models.RaceType
	err := s.db.Select("*").From("race_type").Where(dbx.HashExp{"id": race.RaceTypeID}).One(&rt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil {
		if err := s.db.Select("*").
			From("race_role").
			Where(dbx.HashExp{"race_type_id": rt.ID}).
			OrderBy("name ASC").
			All(&rt.Roles); err != nil {
			return err
		}
		race.RaceType = &rt
	}

	if err := s.db.Select("*").
		From("time_based_price").
		Where(dbx.HashExp{"race_id": race.ID}).
		OrderBy("start_date ASC").
		All(&race.TimePrices); err != nil {
		return err
	}

	return s.db.Select("*").
		From("race_special_price").
		Where(dbx.HashExp{"race_id": race.ID}).
		OrderBy("label ASC").
		All(&race.SpecialPrices)
}

// ListSpecialPrices returns the special prices of a race. Unknown race ids
// yield an empty list, not an error.
func (s *Store) ListSpecialPrices(ctx context.Context, raceID string) ([]models.RaceSpecialPrice, error) {
	var prices []models.RaceSpecialPrice
	err := s.db.Select("*").
		From("race_special_price").
		Where(dbx.HashExp{"race_id": raceID}).
		OrderBy("label ASC").
		All(&prices)
	return prices, err
}

// CreateRaceType persists a race type and its roles.
func (s *Store) CreateRaceType(ctx context.Context, rt *models.RaceType) error {
	if err := s.db.Model(rt).Insert(); err != nil {
		return err
	}
	for i := range rt.Roles {
		rt.Roles[i].RaceTypeID = rt.ID
		if err := s.db.Model(&rt.Roles[i]).Insert(); err != nil {
			return err
		}
	}
	return nil
}

// CreateRace persists a race.
func (s *Store) CreateRace(ctx context.Context, r *models.Race) error {
	return s.db.Model(r).Insert()
}

// CreateTimeBasedPrice persists a pricing window.
func (s *Store) CreateTimeBasedPrice(ctx context.Context, t *models.TimeBasedPrice) error {
	return s.db.Model(t).Insert()
}

// CreateSpecialPrice persists a race special price.
func (s *Store) CreateSpecialPrice(ctx context.Context, sp *models.RaceSpecialPrice) error {
	return s.db.Model(sp).Insert()
}
