package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_IsRegistrationOpen(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	event := Event{
		ID:          "event-1",
		Name:        "City Run",
		Date:        time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		IsAvailable: true,
	}

	assert.True(t, event.IsRegistrationOpen(now, 0))

	// Unavailable events are closed regardless of dates.
	event.IsAvailable = false
	assert.False(t, event.IsRegistrationOpen(now, 0))
	event.IsAvailable = true

	// Past events are closed.
	past := event
	past.Date = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, past.IsRegistrationOpen(now, 0))

	// Registration window bounds.
	event.RegistrationStart = sql.NullTime{Time: now.Add(time.Hour), Valid: true}
	assert.False(t, event.IsRegistrationOpen(now, 0))
	event.RegistrationStart = sql.NullTime{Time: now.Add(-time.Hour), Valid: true}
	event.RegistrationEnd = sql.NullTime{Time: now.Add(-time.Minute), Valid: true}
	assert.False(t, event.IsRegistrationOpen(now, 0))
	event.RegistrationEnd = sql.NullTime{Time: now.Add(time.Hour), Valid: true}
	assert.True(t, event.IsRegistrationOpen(now, 0))

	// Capacity counts paid athletes only; the cap closes registration.
	event.MaxParticipants = sql.NullInt64{Int64: 100, Valid: true}
	assert.True(t, event.IsRegistrationOpen(now, 99))
	assert.False(t, event.IsRegistrationOpen(now, 100))
}

func TestEvent_SlotsRemaining(t *testing.T) {
	event := Event{MaxParticipants: sql.NullInt64{Int64: 50, Valid: true}}

	remaining, capped := event.SlotsRemaining(20)
	assert.True(t, capped)
	assert.Equal(t, int64(30), remaining)

	remaining, capped = event.SlotsRemaining(60)
	assert.True(t, capped)
	assert.Equal(t, int64(0), remaining)

	event.MaxParticipants = sql.NullInt64{}
	_, capped = event.SlotsRemaining(20)
	assert.False(t, capped)
}

func TestRacePackage_IsVisible(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	pkg := RacePackage{Name: "Basic"}
	assert.True(t, pkg.IsVisible(now))

	pkg.VisibleUntil = sql.NullTime{Time: now.Add(time.Hour), Valid: true}
	assert.True(t, pkg.IsVisible(now))

	pkg.VisibleUntil = sql.NullTime{Time: now.Add(-time.Hour), Valid: true}
	assert.False(t, pkg.IsVisible(now))
}

func TestPackageOption_Mandatory(t *testing.T) {
	free := PackageOption{Name: "Comments"}
	assert.False(t, free.Mandatory())

	constrained := PackageOption{Name: "T-shirt size", Choices: StringList{"S", "M", "L"}}
	assert.True(t, constrained.Mandatory())
}

func TestStringList_ContainsExactMatch(t *testing.T) {
	choices := StringList{"S", "M", "L"}

	assert.True(t, choices.Contains("M"))
	assert.False(t, choices.Contains("m"))
	assert.False(t, choices.Contains("XL"))
}

func TestStringList_RoundTrip(t *testing.T) {
	choices := StringList{"S", "M", "L"}

	value, err := choices.Value()
	require.NoError(t, err)

	var decoded StringList
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, choices, decoded)

	var fromNil StringList
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}

func TestOptionSelections_RoundTrip(t *testing.T) {
	selected := OptionSelections{"T-shirt size": {"M"}, "Route": {"A", "B"}}

	value, err := selected.Value()
	require.NoError(t, err)

	var decoded OptionSelections
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, selected, decoded)

	var fromNil OptionSelections
	require.NoError(t, fromNil.Scan(nil))
	assert.NotNil(t, fromNil)
	assert.Len(t, fromNil, 0)
}

func TestRegistration_Transitions(t *testing.T) {
	reg := Registration{
		Status:        RegistrationStatusPending,
		PaymentStatus: PaymentStatusNotPaid,
	}
	assert.False(t, reg.IsPaid())

	reg.MarkPaid()
	assert.True(t, reg.IsPaid())
	assert.Equal(t, RegistrationStatusCompleted, reg.Status)

	// Re-marking paid is a no-op.
	reg.MarkPaid()
	assert.Equal(t, RegistrationStatusCompleted, reg.Status)

	failed := Registration{Status: RegistrationStatusPending, PaymentStatus: PaymentStatusNotPaid}
	failed.MarkFailed()
	assert.Equal(t, RegistrationStatusFailed, failed.Status)
	assert.Equal(t, PaymentStatusFailed, failed.PaymentStatus)
}

func TestAthlete_JSONHidesInternalFields(t *testing.T) {
	a := Athlete{
		ID:        "ath-1",
		FirstName: "Maria",
		LastName:  "Papadopoulou",
		RoleID:    sql.NullString{String: "role-1", Valid: true},
	}

	jsonData, err := json.Marshal(&a)
	require.NoError(t, err)

	assert.Contains(t, string(jsonData), `"first_name":"Maria"`)
	assert.NotContains(t, string(jsonData), "role_id")

	assert.Equal(t, "Maria Papadopoulou", a.FullName())
}
