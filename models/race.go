package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// RaceType categorizes races (e.g. Marathon, Relay) and carries the rules
// shared by all races of that type: minimum participant count and the set
// of roles that must all be represented in a single registration.
type RaceType struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Description     string `db:"description" json:"description"`
	MinParticipants int    `db:"min_participants" json:"min_participants"`

	Roles []RaceRole `db:"-" json:"roles,omitempty"`
}

func (rt *RaceType) TableName() string { return "race_type" }

// RequiresRoles reports whether registrations for this type must cover a
// role set (e.g. Runner + Cyclist for a duathlon relay).
func (rt *RaceType) RequiresRoles() bool { return len(rt.Roles) > 0 }

// RaceRole is a named role an athlete performs within a race.
type RaceRole struct {
	ID         string `db:"id" json:"id"`
	RaceTypeID string `db:"race_type_id" json:"race_type_id"`
	Name       string `db:"name" json:"name"`
}

func (r *RaceRole) TableName() string { return "race_role" }

// Race is a single competitive distance within an event.
type Race struct {
	ID                    string          `db:"id" json:"id"`
	EventID               string          `db:"event_id" json:"event_id"`
	RaceTypeID            string          `db:"race_type_id" json:"race_type_id"`
	Name                  string          `db:"name" json:"name"`
	DistanceKM            decimal.Decimal `db:"distance_km" json:"distance_km"`
	MaxParticipants       sql.NullInt64   `db:"max_participants" json:"-"`
	MinParticipants       sql.NullInt64   `db:"min_participants" json:"-"`
	BasePriceIndividual   decimal.Decimal `db:"base_price_individual" json:"base_price_individual"`
	BasePriceTeam         decimal.Decimal `db:"base_price_team" json:"base_price_team"`
	TeamDiscountThreshold sql.NullInt64   `db:"team_discount_threshold" json:"-"`

	RaceType      *RaceType        `db:"-" json:"race_type,omitempty"`
	TimePrices    []TimeBasedPrice `db:"-" json:"time_prices,omitempty"`
	SpecialPrices []RaceSpecialPrice `db:"-" json:"special_prices,omitempty"`
}

func (r *Race) TableName() string { return "race" }

// HasTeamDiscount reports whether team pricing is configured: a threshold
// is set and the team base price is positive.
func (r *Race) HasTeamDiscount() bool {
	return r.TeamDiscountThreshold.Valid && r.BasePriceTeam.GreaterThan(decimal.Zero)
}

// IsTeam reports whether a registration of teamSize athletes qualifies for
// team pricing. A size exactly at the threshold already qualifies.
func (r *Race) IsTeam(teamSize int) bool {
	return r.HasTeamDiscount() && int64(teamSize) >= r.TeamDiscountThreshold.Int64
}

// BasePrice returns the per-athlete base price for a registration of the
// given size.
func (r *Race) BasePrice(teamSize int) decimal.Decimal {
	if r.IsTeam(teamSize) {
		return r.BasePriceTeam
	}
	return r.BasePriceIndividual
}

// TimeAdjustment returns the price adjustment of the time window containing
// now, or zero when no window is active. When windows overlap, the first
// one in ascending start-date order wins; overlap is a configuration
// anomaly, not an error.
func (r *Race) TimeAdjustment(now time.Time) decimal.Decimal {
	if tbp := r.activeWindow(now); tbp != nil {
		return tbp.PriceAdjustment
	}
	return decimal.Zero
}

// CurrentPricingLabel returns the label of the active time window, if any.
func (r *Race) CurrentPricingLabel(now time.Time) (string, bool) {
	if tbp := r.activeWindow(now); tbp != nil {
		return tbp.Label, true
	}
	return "", false
}

func (r *Race) activeWindow(now time.Time) *TimeBasedPrice {
	// TimePrices are loaded ordered by start_date.
	for i := range r.TimePrices {
		if r.TimePrices[i].Contains(now) {
			return &r.TimePrices[i]
		}
	}
	return nil
}

// MinimumParticipants returns the required athlete count for one
// registration. The race type's minimum wins; a race-level minimum is kept
// for older configurations. Defaults to 1.
func (r *Race) MinimumParticipants() int {
	if r.RaceType != nil && r.RaceType.MinParticipants > 0 {
		return r.RaceType.MinParticipants
	}
	if r.MinParticipants.Valid && r.MinParticipants.Int64 > 0 {
		return int(r.MinParticipants.Int64)
	}
	return 1
}

// TimeBasedPrice is a scheduled surcharge or discount window on a race,
// e.g. early-bird pricing.
type TimeBasedPrice struct {
	ID              string          `db:"id" json:"id"`
	RaceID          string          `db:"race_id" json:"race_id"`
	Label           string          `db:"label" json:"label"`
	StartDate       time.Time       `db:"start_date" json:"start_date"`
	EndDate         time.Time       `db:"end_date" json:"end_date"`
	PriceAdjustment decimal.Decimal `db:"price_adjustment" json:"price_adjustment"`
}

func (t *TimeBasedPrice) TableName() string { return "time_based_price" }

// Contains reports whether the instant falls inside [StartDate, EndDate].
func (t *TimeBasedPrice) Contains(now time.Time) bool {
	return !now.Before(t.StartDate) && !now.After(t.EndDate)
}
