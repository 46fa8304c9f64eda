package models

import "time"

// TermsAndConditions is the versioned terms document of an event. A
// registration records the exact version agreed to, so later edits never
// change past agreements.
type TermsAndConditions struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Version   string    `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (t *TermsAndConditions) TableName() string { return "terms_and_conditions" }
