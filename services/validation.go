package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/erictragoustis/vuvoregs/models"
)

// Validation error codes returned to clients.
const (
	CodeInsufficientParticipants = "insufficient_participants"
	CodeMissingRoles             = "missing_roles"
	CodePackageRequired          = "package_required"
	CodeMissingOption            = "missing_option"
	CodeInvalidOption            = "invalid_option"
	CodeInvalidField             = "invalid_field"
	CodeTermsRequired            = "terms_required"
)

// AthleteSubmission is one athlete entry of a registration request.
type AthleteSubmission struct {
	FirstName      string              `json:"first_name" validate:"required"`
	LastName       string              `json:"last_name" validate:"required"`
	FathersName    string              `json:"fathers_name"`
	Team           string              `json:"team"`
	Email          string              `json:"email" validate:"required,email"`
	Phone          string              `json:"phone" validate:"required"`
	Sex            string              `json:"sex" validate:"required,oneof=Male Female"`
	DOB            string              `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Hometown       string              `json:"hometown"`
	PickUpPointID  string              `json:"pickup_point_id"`
	PackageID      string              `json:"package_id"`
	SpecialPriceID string              `json:"special_price_id"`
	RoleID         string              `json:"role_id"`
	Selected       map[string][]string `json:"selected_options"`
	Remove         bool                `json:"remove"`
}

// RegistrationSubmission is the full payload of a registration request.
type RegistrationSubmission struct {
	Athletes []AthleteSubmission `json:"athletes"`
}

// ValidationError describes one rejected aspect of a submission. Athlete is
// the zero-based index into the submitted athletes, or -1 for errors that
// concern the submission as a whole.
type ValidationError struct {
	Athlete int    `json:"athlete"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return fmt.Sprintf("validation: %s", v[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(v))
}

// Validator checks registration submissions against a race's rules. All
// athletes are checked before returning so the client sees every problem at
// once.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate runs field, package option, participant count and role coverage
// checks. packages maps package id to the loaded package for every athlete
// that references one. A nil or empty result means the submission passed.
func (v *Validator) Validate(race *models.Race, packages map[string]*models.RacePackage, athletes []AthleteSubmission) ValidationErrors {
	var errs ValidationErrors

	minParticipants := race.MinimumParticipants()
	if len(athletes) < minParticipants {
		errs = append(errs, ValidationError{
			Athlete: -1,
			Code:    CodeInsufficientParticipants,
			Message: fmt.Sprintf("race requires at least %d participants, got %d", minParticipants, len(athletes)),
		})
	}

	for i, a := range athletes {
		errs = append(errs, v.validateAthlete(i, a, packages)...)
	}

	errs = append(errs, v.validateRoleCoverage(race, athletes)...)

	return errs
}

func (v *Validator) validateAthlete(idx int, a AthleteSubmission, packages map[string]*models.RacePackage) ValidationErrors {
	var errs ValidationErrors

	if err := v.validate.Struct(a); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, ValidationError{
					Athlete: idx,
					Code:    CodeInvalidField,
					Field:   fe.Field(),
					Message: fmt.Sprintf("field %s failed on the %s rule", fe.Field(), fe.Tag()),
				})
			}
		} else {
			errs = append(errs, ValidationError{
				Athlete: idx,
				Code:    CodeInvalidField,
				Message: err.Error(),
			})
		}
	}

	if a.PackageID == "" {
		errs = append(errs, ValidationError{
			Athlete: idx,
			Code:    CodePackageRequired,
			Message: "a package must be selected",
		})
		return errs
	}

	pkg := packages[a.PackageID]
	if pkg == nil {
		return errs
	}

	for _, opt := range pkg.Options {
		if !opt.Mandatory() {
			continue
		}
		values := a.Selected[opt.Name]
		if len(values) == 0 {
			errs = append(errs, ValidationError{
				Athlete: idx,
				Code:    CodeMissingOption,
				Field:   opt.Name,
				Message: fmt.Sprintf("option %q requires a choice", opt.Name),
			})
			continue
		}
		for _, val := range values {
			if !opt.Choices.Contains(val) {
				errs = append(errs, ValidationError{
					Athlete: idx,
					Code:    CodeInvalidOption,
					Field:   opt.Name,
					Message: fmt.Sprintf("%q is not a valid choice for option %q", val, opt.Name),
				})
			}
		}
	}

	return errs
}

func (v *Validator) validateRoleCoverage(race *models.Race, athletes []AthleteSubmission) ValidationErrors {
	if race.RaceType == nil || !race.RaceType.RequiresRoles() {
		return nil
	}

	covered := make(map[string]bool, len(race.RaceType.Roles))
	for _, a := range athletes {
		if a.RoleID != "" {
			covered[a.RoleID] = true
		}
	}

	var errs ValidationErrors
	for _, role := range race.RaceType.Roles {
		if !covered[role.ID] {
			errs = append(errs, ValidationError{
				Athlete: -1,
				Code:    CodeMissingRoles,
				Field:   role.Name,
				Message: fmt.Sprintf("role %q must be filled by at least one athlete", role.Name),
			})
		}
	}
	return errs
}

// AllocateRoles assigns race roles round-robin to athletes that did not pick
// one. The assignment is deterministic so repeated submissions of the same
// payload produce the same allocation.
func AllocateRoles(race *models.Race, athletes []AthleteSubmission) {
	if race.RaceType == nil || !race.RaceType.RequiresRoles() {
		return
	}
	roles := race.RaceType.Roles
	for i := range athletes {
		if athletes[i].RoleID == "" {
			athletes[i].RoleID = roles[i%len(roles)].ID
		}
	}
}
