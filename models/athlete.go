package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OptionSelections maps a package option name to the value(s) an athlete
// chose, stored as a JSON column. Multi-value options are supported.
type OptionSelections map[string][]string

func (s OptionSelections) Value() (driver.Value, error) {
	if s == nil {
		s = OptionSelections{}
	}
	b, err := json.Marshal(map[string][]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *OptionSelections) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = OptionSelections{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into OptionSelections", src)
	}
}

// Athlete is one participant inside a Registration, tied to exactly one
// race and one package. Athletes are immutable once paid; only the bib
// number is assigned post-hoc.
type Athlete struct {
	ID             string           `db:"id" json:"id"`
	RegistrationID string           `db:"registration_id" json:"registration_id"`
	RaceID         string           `db:"race_id" json:"race_id"`
	PackageID      string           `db:"package_id" json:"package_id"`
	FirstName      string           `db:"first_name" json:"first_name"`
	LastName       string           `db:"last_name" json:"last_name"`
	FathersName    string           `db:"fathers_name" json:"fathers_name"`
	Team           string           `db:"team" json:"team"`
	Email          string           `db:"email" json:"email"`
	Phone          string           `db:"phone" json:"phone"`
	Sex            string           `db:"sex" json:"sex"`
	DOB            sql.NullTime     `db:"dob" json:"-"`
	Hometown       string           `db:"hometown" json:"hometown"`
	PickUpPointID  sql.NullString   `db:"pickup_point_id" json:"-"`
	RoleID         sql.NullString   `db:"role_id" json:"-"`
	SpecialPriceID sql.NullString   `db:"special_price_id" json:"-"`
	BibNumber      string           `db:"bib_number" json:"bib_number"`
	Selected       OptionSelections `db:"selected_options" json:"selected_options"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

func (a *Athlete) TableName() string { return "athlete" }

// FullName returns the athlete's display name.
func (a *Athlete) FullName() string { return a.FirstName + " " + a.LastName }

// TotalPrice computes an athlete's final price:
//
//	base (team or individual, by teamSize)
//	+ package adjustment
//	+ time-window adjustment at now
//	- special-price discount
//
// Pure function of its inputs; teamSize must be the size of the athlete's
// final registration, not a stale count. The result is not clamped here;
// the registration aggregate clamps negative amounts when persisting.
func TotalPrice(race *Race, pkg *RacePackage, special *RaceSpecialPrice, teamSize int, now time.Time) decimal.Decimal {
	discount := decimal.Zero
	if special != nil {
		discount = special.DiscountAmount
	}
	return race.BasePrice(teamSize).
		Add(pkg.PriceAdjustment).
		Add(race.TimeAdjustment(now)).
		Sub(discount)
}
