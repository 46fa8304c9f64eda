package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"github.com/erictragoustis/vuvoregs/internal/status"
	"github.com/erictragoustis/vuvoregs/models"
	"github.com/erictragoustis/vuvoregs/monitoring"
	"github.com/erictragoustis/vuvoregs/storage"
	"github.com/erictragoustis/vuvoregs/utils"
)

// RegistrationService owns the registration aggregate: open checks,
// validation, role allocation and the all-or-nothing persist of the
// athlete set.
type RegistrationService struct {
	store     *storage.Store
	validator *Validator
	monitor   *monitoring.Monitor
	log       *slog.Logger
}

func NewRegistrationService(store *storage.Store, validator *Validator, monitor *monitoring.Monitor, log *slog.Logger) *RegistrationService {
	return &RegistrationService{
		store:     store,
		validator: validator,
		monitor:   monitor,
		log:       log,
	}
}

// Register creates a registration with its athletes for a race. Either the
// whole submission persists or none of it does. Returns ValidationErrors
// when the submission fails soft validation, and status sentinels for
// closed-event and cross-race reference violations.
func (s *RegistrationService) Register(ctx context.Context, raceID string, sub RegistrationSubmission) (*models.Registration, []models.Athlete, error) {
	now := time.Now().UTC()

	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return nil, nil, err
	}
	event, err := s.store.GetEvent(ctx, race.EventID)
	if err != nil {
		return nil, nil, err
	}
	paid, err := s.store.CountPaidAthletes(ctx, event.ID)
	if err != nil {
		return nil, nil, err
	}
	if !event.IsRegistrationOpen(now, paid) {
		return nil, nil, status.ErrRegistrationClosed
	}

	// Entries flagged for removal drop out before any rule runs, so a
	// removed athlete can never fail validation or count toward minimums.
	athletes := make([]AthleteSubmission, 0, len(sub.Athletes))
	for _, a := range sub.Athletes {
		if !a.Remove {
			athletes = append(athletes, a)
		}
	}

	packages, err := s.resolvePackages(ctx, race, athletes)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkReferences(race, athletes); err != nil {
		return nil, nil, err
	}

	AllocateRoles(race, athletes)

	if verrs := s.validator.Validate(race, packages, athletes); len(verrs) > 0 {
		for _, ve := range verrs {
			s.monitor.TrackValidationFailure(ve.Code)
		}
		return nil, nil, verrs
	}

	specials := make(map[string]*models.RaceSpecialPrice, len(race.SpecialPrices))
	for i := range race.SpecialPrices {
		specials[race.SpecialPrices[i].ID] = &race.SpecialPrices[i]
	}

	reg := &models.Registration{
		EventID:       event.ID,
		Status:        models.RegistrationStatusPending,
		PaymentStatus: models.PaymentStatusNotPaid,
		TotalAmount:   decimal.Zero,
	}
	var saved []models.Athlete

	teamSize := len(athletes)
	err = s.store.Transactional(func(tx dbx.Builder) error {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return err
		}
		reg.ID = id
		if err := s.store.CreateRegistration(tx, reg); err != nil {
			return err
		}

		total := decimal.Zero
		for _, a := range athletes {
			model, err := buildAthlete(reg.ID, race.ID, a)
			if err != nil {
				return err
			}

			var special *models.RaceSpecialPrice
			if a.SpecialPriceID != "" {
				special = specials[a.SpecialPriceID]
			}
			price := models.TotalPrice(race, packages[a.PackageID], special, teamSize, now)
			if price.IsNegative() {
				price = decimal.Zero
			}
			total = total.Add(price)

			if err := s.store.InsertAthlete(tx, model); err != nil {
				return err
			}
			saved = append(saved, *model)
		}

		if total.IsNegative() {
			total = decimal.Zero
		}
		reg.TotalAmount = total
		return s.store.UpdateRegistrationTotal(tx, reg.ID, total)
	})
	if err != nil {
		return nil, nil, err
	}

	s.monitor.TrackRegistrationCreated(race.ID)
	s.log.Info("registration created",
		slog.String("registration_id", reg.ID),
		slog.String("race_id", race.ID),
		slog.Int("athletes", len(saved)),
		slog.String("total", reg.TotalAmount.StringFixed(2)),
	)

	return reg, saved, nil
}

// resolvePackages loads every referenced package once and enforces that each
// belongs to the submitted race.
func (s *RegistrationService) resolvePackages(ctx context.Context, race *models.Race, athletes []AthleteSubmission) (map[string]*models.RacePackage, error) {
	packages := make(map[string]*models.RacePackage)
	for _, a := range athletes {
		if a.PackageID == "" {
			continue
		}
		if _, ok := packages[a.PackageID]; ok {
			continue
		}
		pkg, err := s.store.GetPackage(ctx, a.PackageID)
		if err != nil {
			return nil, err
		}
		if pkg == nil || pkg.RaceID != race.ID {
			return nil, status.ErrPackageNotInRace
		}
		packages[a.PackageID] = pkg
	}
	return packages, nil
}

// checkReferences rejects special prices and roles that do not belong to the
// race. These are hard failures, not validation errors, since a well-behaved
// client can only produce them by mixing ids across races.
func (s *RegistrationService) checkReferences(race *models.Race, athletes []AthleteSubmission) error {
	specials := make(map[string]bool, len(race.SpecialPrices))
	for _, sp := range race.SpecialPrices {
		specials[sp.ID] = true
	}
	roles := make(map[string]bool)
	if race.RaceType != nil {
		for _, r := range race.RaceType.Roles {
			roles[r.ID] = true
		}
	}

	for _, a := range athletes {
		if a.SpecialPriceID != "" && !specials[a.SpecialPriceID] {
			return status.ErrSpecialPriceNotInRace
		}
		if a.RoleID != "" && !roles[a.RoleID] {
			return status.ErrRoleNotInRaceType
		}
	}
	return nil
}

func buildAthlete(registrationID, raceID string, a AthleteSubmission) (*models.Athlete, error) {
	id, err := utils.GenerateCode(8)
	if err != nil {
		return nil, err
	}

	model := &models.Athlete{
		ID:             id,
		RegistrationID: registrationID,
		RaceID:         raceID,
		PackageID:      a.PackageID,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		FathersName:    a.FathersName,
		Team:           a.Team,
		Email:          a.Email,
		Phone:          a.Phone,
		Sex:            a.Sex,
		Hometown:       a.Hometown,
		Selected:       models.OptionSelections(a.Selected),
	}
	if a.DOB != "" {
		dob, err := time.Parse("2006-01-02", a.DOB)
		if err != nil {
			return nil, fmt.Errorf("parse dob: %w", err)
		}
		model.DOB = sql.NullTime{Time: dob, Valid: true}
	}
	if a.PickUpPointID != "" {
		model.PickUpPointID = sql.NullString{String: a.PickUpPointID, Valid: true}
	}
	if a.RoleID != "" {
		model.RoleID = sql.NullString{String: a.RoleID, Valid: true}
	}
	if a.SpecialPriceID != "" {
		model.SpecialPriceID = sql.NullString{String: a.SpecialPriceID, Valid: true}
	}
	return model, nil
}

// ConfirmTerms records the user's agreement to the event's terms. Declining
// is an error; payment cannot start until terms are accepted.
func (s *RegistrationService) ConfirmTerms(ctx context.Context, registrationID string, agrees bool) error {
	if !agrees {
		return status.ErrTermsNotAccepted
	}
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return err
	}

	termsID := ""
	terms, err := s.store.GetTerms(ctx, reg.EventID)
	if err != nil {
		return err
	}
	if terms != nil {
		termsID = terms.ID
	}
	return s.store.SaveTermsAgreement(ctx, registrationID, termsID)
}

// GetRegistration returns a registration with its athletes.
func (s *RegistrationService) GetRegistration(ctx context.Context, id string) (*models.Registration, []models.Athlete, error) {
	reg, err := s.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	athletes, err := s.store.ListAthletes(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return reg, athletes, nil
}
