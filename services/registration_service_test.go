package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/models"
	"github.com/erictragoustis/vuvoregs/monitoring"
	"github.com/erictragoustis/vuvoregs/storage"
)

var testDBCounter int

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:regsvc%d?mode=memory&cache=shared", testDBCounter)
	store, err := storage.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store   *storage.Store
	event   *models.Event
	race    *models.Race
	pkg     *models.RacePackage
	special *models.RaceSpecialPrice
}

// seedRace sets up an open event with a relay race: team threshold 3,
// individual 30.00 / team 20.00, one package with a mandatory size option
// and a 5.00 student discount.
func seedRace(t *testing.T, store *storage.Store) *fixture {
	t.Helper()
	ctx := context.Background()

	event := &models.Event{
		ID:          "event-1",
		Name:        "City Run",
		Date:        time.Now().UTC().Add(30 * 24 * time.Hour),
		Location:    "Athens",
		IsAvailable: true,
	}
	require.NoError(t, store.CreateEvent(ctx, event))

	rt := &models.RaceType{
		ID:              "rt-1",
		Name:            "Relay",
		MinParticipants: 2,
		Roles: []models.RaceRole{
			{ID: "role-run", Name: "Runner"},
			{ID: "role-bike", Name: "Cyclist"},
		},
	}
	require.NoError(t, store.CreateRaceType(ctx, rt))

	race := &models.Race{
		ID:                    "race-1",
		EventID:               event.ID,
		RaceTypeID:            rt.ID,
		Name:                  "Duathlon",
		DistanceKM:            decimal.NewFromInt(10),
		BasePriceIndividual:   decimal.RequireFromString("30.00"),
		BasePriceTeam:         decimal.RequireFromString("20.00"),
		TeamDiscountThreshold: sql.NullInt64{Int64: 3, Valid: true},
	}
	require.NoError(t, store.CreateRace(ctx, race))

	pkg := &models.RacePackage{
		ID:      "pkg-1",
		EventID: event.ID,
		RaceID:  race.ID,
		Name:    "Basic",
		Options: []models.PackageOption{
			{ID: "opt-1", Name: "T-shirt size", Choices: models.StringList{"S", "M", "L"}},
		},
	}
	require.NoError(t, store.CreatePackage(ctx, pkg))

	special := &models.RaceSpecialPrice{
		ID:             "sp-1",
		RaceID:         race.ID,
		Label:          "Student",
		DiscountAmount: decimal.RequireFromString("5.00"),
	}
	require.NoError(t, store.CreateSpecialPrice(ctx, special))

	return &fixture{store: store, event: event, race: race, pkg: pkg, special: special}
}

func newRegistrationService(store *storage.Store) *RegistrationService {
	return NewRegistrationService(store, NewValidator(), monitoring.NewMonitor(nil), testLogger())
}

func submission(n int) RegistrationSubmission {
	var sub RegistrationSubmission
	for i := 0; i < n; i++ {
		a := validAthlete()
		a.Email = fmt.Sprintf("athlete%d@example.com", i)
		sub.Athletes = append(sub.Athletes, a)
	}
	return sub
}

func TestRegister_PersistsAggregate(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)
	ctx := context.Background()

	reg, athletes, err := svc.Register(ctx, fx.race.ID, submission(3))
	require.NoError(t, err)
	require.NotNil(t, reg)
	require.Len(t, athletes, 3)

	// Team of three hits the threshold: 3 x 20.00.
	assert.True(t, decimal.RequireFromString("60.00").Equal(reg.TotalAmount))
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Equal(t, models.PaymentStatusNotPaid, reg.PaymentStatus)

	loaded, loadedAthletes, err := svc.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, reg.TotalAmount.Equal(loaded.TotalAmount))
	assert.Len(t, loadedAthletes, 3)

	// Roles were allocated round-robin before validation.
	for _, a := range loadedAthletes {
		assert.True(t, a.RoleID.Valid)
	}
}

func TestRegister_TwoAthletesPayIndividualPrice(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)

	reg, _, err := svc.Register(context.Background(), fx.race.ID, submission(2))
	require.NoError(t, err)

	// Below the threshold: 2 x 30.00.
	assert.True(t, decimal.RequireFromString("60.00").Equal(reg.TotalAmount))
}

func TestRegister_AllOrNothing(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)
	ctx := context.Background()

	sub := submission(3)
	sub.Athletes[1].Email = "broken"

	_, _, err := svc.Register(ctx, fx.race.ID, sub)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	// Nothing was persisted, not even the two valid athletes.
	var athletes, registrations int
	require.NoError(t, store.DB().NewQuery(`SELECT COUNT(id) FROM athlete`).Row(&athletes))
	require.NoError(t, store.DB().NewQuery(`SELECT COUNT(id) FROM registration`).Row(&registrations))
	assert.Zero(t, athletes)
	assert.Zero(t, registrations)
}

func TestRegister_RemovedAthletesAreIgnored(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)

	sub := submission(4)
	sub.Athletes[3].Remove = true
	sub.Athletes[3].Email = "broken" // would fail validation if considered

	reg, athletes, err := svc.Register(context.Background(), fx.race.ID, sub)
	require.NoError(t, err)
	assert.Len(t, athletes, 3)
	assert.True(t, decimal.RequireFromString("60.00").Equal(reg.TotalAmount))
}

func TestRegister_ClosedEvent(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)
	ctx := context.Background()

	// Close the window.
	_, err := store.DB().NewQuery(`UPDATE event SET registration_end = {:end} WHERE id = {:id}`).
		Bind(map[string]any{"end": time.Now().UTC().Add(-time.Hour), "id": fx.event.ID}).
		Execute()
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, fx.race.ID, submission(2))
	assert.ErrorIs(t, err, status.ErrRegistrationClosed)
}

func TestRegister_PackageFromAnotherRace(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)
	ctx := context.Background()

	other := &models.Race{
		ID:                  "race-2",
		EventID:             fx.event.ID,
		RaceTypeID:          "rt-1",
		Name:                "5K",
		BasePriceIndividual: decimal.RequireFromString("15.00"),
	}
	require.NoError(t, store.CreateRace(ctx, other))

	sub := submission(2)
	for i := range sub.Athletes {
		sub.Athletes[i].PackageID = fx.pkg.ID
	}

	_, _, err := svc.Register(ctx, other.ID, sub)
	assert.ErrorIs(t, err, status.ErrPackageNotInRace)
}

func TestRegister_SpecialDiscountClampedAtZero(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)
	ctx := context.Background()

	huge := &models.RaceSpecialPrice{
		ID:             "sp-huge",
		RaceID:         fx.race.ID,
		Label:          "Sponsor",
		DiscountAmount: decimal.RequireFromString("100.00"),
	}
	require.NoError(t, store.CreateSpecialPrice(ctx, huge))

	sub := submission(2)
	sub.Athletes[0].SpecialPriceID = huge.ID

	reg, _, err := svc.Register(ctx, fx.race.ID, sub)
	require.NoError(t, err)

	// First athlete clamps to zero instead of going negative: 0 + 30.00.
	assert.True(t, decimal.RequireFromString("30.00").Equal(reg.TotalAmount))
}

func TestConfirmTerms(t *testing.T) {
	store := newTestStore(t)
	fx := seedRace(t, store)
	svc := newRegistrationService(store)
	ctx := context.Background()

	require.NoError(t, store.CreateTerms(ctx, &models.TermsAndConditions{
		ID:      "terms-1",
		EventID: fx.event.ID,
		Title:   "Terms and Conditions",
		Version: "1.0",
	}))

	reg, _, err := svc.Register(ctx, fx.race.ID, submission(2))
	require.NoError(t, err)

	// Declining never records agreement.
	assert.ErrorIs(t, svc.ConfirmTerms(ctx, reg.ID, false), status.ErrTermsNotAccepted)

	require.NoError(t, svc.ConfirmTerms(ctx, reg.ID, true))

	loaded, _, err := svc.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, loaded.AgreesToTerms)
	assert.Equal(t, "terms-1", loaded.AgreedTermsID.String)
}

func TestConfirmTerms_UnknownRegistration(t *testing.T) {
	store := newTestStore(t)
	seedRace(t, store)
	svc := newRegistrationService(store)

	err := svc.ConfirmTerms(context.Background(), "missing", true)
	assert.ErrorIs(t, err, status.ErrRegistrationNotFound)
}
