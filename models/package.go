package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RacePackage is a purchasable bundle (bib + extras) for one race, priced
// as an adjustment on top of the race base price. A package can be hidden
// after VisibleUntil passes.
type RacePackage struct {
	ID              string          `db:"id" json:"id"`
	EventID         string          `db:"event_id" json:"event_id"`
	RaceID          string          `db:"race_id" json:"race_id"`
	Name            string          `db:"name" json:"name"`
	Description     string          `db:"description" json:"description"`
	PriceAdjustment decimal.Decimal `db:"price_adjustment" json:"price_adjustment"`
	VisibleUntil    sql.NullTime    `db:"visible_until" json:"-"`

	Options []PackageOption `db:"-" json:"options,omitempty"`
}

func (p *RacePackage) TableName() string { return "race_package" }

// IsVisible reports whether the package may still be offered.
func (p *RacePackage) IsVisible(now time.Time) bool {
	return !p.VisibleUntil.Valid || p.VisibleUntil.Time.After(now)
}

// FinalPrice is the race base price plus package and time-window
// adjustments, without any athlete-level special discount. Used for UI
// previews before an athlete is finalized; shares the window selection rule
// with athlete pricing.
func (p *RacePackage) FinalPrice(race *Race, teamSize int, now time.Time) decimal.Decimal {
	return race.BasePrice(teamSize).Add(p.PriceAdjustment).Add(race.TimeAdjustment(now))
}

// StringList stores an ordered list of strings as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// Contains reports whether value is one of the allowed choices. Matching is
// exact; there is no case folding.
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if v == value {
			return true
		}
	}
	return false
}

// PackageOption is a named constrained-choice attribute of a package, e.g.
// a T-shirt size. An option with a non-empty choice list is mandatory: an
// athlete buying the package must pick from the allowed set.
type PackageOption struct {
	ID        string     `db:"id" json:"id"`
	PackageID string     `db:"package_id" json:"package_id"`
	Name      string     `db:"name" json:"name"`
	Choices   StringList `db:"choices" json:"options_json"`
}

func (o *PackageOption) TableName() string { return "package_option" }

// Mandatory reports whether the athlete must supply a selection.
func (o *PackageOption) Mandatory() bool { return len(o.Choices) > 0 }

// RaceSpecialPrice is an optional athlete-level flat discount on a race,
// e.g. a student discount.
type RaceSpecialPrice struct {
	ID             string          `db:"id" json:"id"`
	RaceID         string          `db:"race_id" json:"race_id"`
	Label          string          `db:"label" json:"label"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
}

func (s *RaceSpecialPrice) TableName() string { return "race_special_price" }
