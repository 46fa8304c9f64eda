package status

import "errors"

var (
	ErrEventNotFound         = errors.New("event: event not found")
	ErrRaceNotFound          = errors.New("race: race not found")
	ErrRegistrationClosed    = errors.New("registration: event not open for registration")
	ErrRegistrationNotFound  = errors.New("registration: registration not found")
	ErrPackageNotInRace      = errors.New("package: package not offered for this race")
	ErrSpecialPriceNotInRace = errors.New("special price: not offered for this race")
	ErrRoleNotInRaceType     = errors.New("role: role not allowed for this race type")
	ErrTermsNotAccepted      = errors.New("payment: terms and conditions not accepted")
	ErrPaymentNotFound       = errors.New("payment: payment not found")
	ErrProviderUnavailable   = errors.New("payment: payment provider unavailable")
)
