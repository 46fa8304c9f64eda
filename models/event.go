package models

import (
	"database/sql"
	"time"
)

// Event is a race event athletes can register for. Registration is open
// only while the event is available, inside the registration window, before
// the event date, and (when capacity is set) below the paid-athlete cap.
type Event struct {
	ID                string        `db:"id" json:"id"`
	Name              string        `db:"name" json:"name"`
	Date              time.Time     `db:"date" json:"date"`
	Location          string        `db:"location" json:"location"`
	Description       string        `db:"description" json:"description"`
	Organizer         string        `db:"organizer" json:"organizer"`
	Email             string        `db:"email" json:"email"`
	MaxParticipants   sql.NullInt64 `db:"max_participants" json:"-"`
	RegistrationStart sql.NullTime  `db:"registration_start" json:"-"`
	RegistrationEnd   sql.NullTime  `db:"registration_end" json:"-"`
	IsAvailable       bool          `db:"is_available" json:"is_available"`
}

func (e *Event) TableName() string { return "event" }

// IsRegistrationOpen reports whether registration is open at the given
// instant. paidAthletes is the current count of athletes on paid
// registrations for this event.
func (e *Event) IsRegistrationOpen(now time.Time, paidAthletes int) bool {
	if !e.IsAvailable || e.Date.Before(now.Truncate(24*time.Hour)) {
		return false
	}
	if e.RegistrationStart.Valid && e.RegistrationStart.Time.After(now) {
		return false
	}
	if e.RegistrationEnd.Valid && e.RegistrationEnd.Time.Before(now) {
		return false
	}
	if e.MaxParticipants.Valid && int64(paidAthletes) >= e.MaxParticipants.Int64 {
		return false
	}
	return true
}

// SlotsRemaining returns the number of slots still available, or false when
// the event has no capacity limit.
func (e *Event) SlotsRemaining(paidAthletes int) (int64, bool) {
	if !e.MaxParticipants.Valid {
		return 0, false
	}
	remaining := e.MaxParticipants.Int64 - int64(paidAthletes)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// PickUpPoint is a location where race packages can be collected.
type PickUpPoint struct {
	ID           string `db:"id" json:"id"`
	EventID      string `db:"event_id" json:"event_id"`
	Name         string `db:"name" json:"name"`
	Address      string `db:"address" json:"address"`
	WorkingHours string `db:"working_hours" json:"working_hours"`
}

func (p *PickUpPoint) TableName() string { return "pickup_point" }
