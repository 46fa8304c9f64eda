package storage

import "github.com/pocketbase/dbx"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS event (
		id                 TEXT PRIMARY KEY,
		name               TEXT NOT NULL,
		date               DATETIME NOT NULL,
		location           TEXT NOT NULL DEFAULT '',
		description        TEXT NOT NULL DEFAULT '',
		organizer          TEXT NOT NULL DEFAULT '',
		email              TEXT NOT NULL DEFAULT '',
		max_participants   INTEGER,
		registration_start DATETIME,
		registration_end   DATETIME,
		is_available       BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS pickup_point (
		id            TEXT PRIMARY KEY,
		event_id      TEXT NOT NULL REFERENCES event(id),
		name          TEXT NOT NULL,
		address       TEXT NOT NULL DEFAULT '',
		working_hours TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS race_type (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		min_participants INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS race_role (
		id           TEXT PRIMARY KEY,
		race_type_id TEXT NOT NULL REFERENCES race_type(id),
		name         TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS race (
		id                      TEXT PRIMARY KEY,
		event_id                TEXT NOT NULL REFERENCES event(id),
		race_type_id            TEXT NOT NULL REFERENCES race_type(id),
		name                    TEXT NOT NULL DEFAULT '',
		distance_km             TEXT NOT NULL DEFAULT '0',
		max_participants        INTEGER,
		min_participants        INTEGER,
		base_price_individual   TEXT NOT NULL DEFAULT '0',
		base_price_team         TEXT NOT NULL DEFAULT '0',
		team_discount_threshold INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS time_based_price (
		id               TEXT PRIMARY KEY,
		race_id          TEXT NOT NULL REFERENCES race(id),
		label            TEXT NOT NULL DEFAULT '',
		start_date       DATETIME NOT NULL,
		end_date         DATETIME NOT NULL,
		price_adjustment TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS race_package (
		id               TEXT PRIMARY KEY,
		event_id         TEXT NOT NULL REFERENCES event(id),
		race_id          TEXT NOT NULL REFERENCES race(id),
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		price_adjustment TEXT NOT NULL DEFAULT '0',
		visible_until    DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS package_option (
		id         TEXT PRIMARY KEY,
		package_id TEXT NOT NULL REFERENCES race_package(id),
		name       TEXT NOT NULL,
		choices    TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS race_special_price (
		id              TEXT PRIMARY KEY,
		race_id         TEXT NOT NULL REFERENCES race(id),
		label           TEXT NOT NULL,
		discount_amount TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS terms_and_conditions (
		id         TEXT PRIMARY KEY,
		event_id   TEXT NOT NULL REFERENCES event(id),
		title      TEXT NOT NULL DEFAULT 'Terms and Conditions',
		content    TEXT NOT NULL DEFAULT '',
		version    TEXT NOT NULL DEFAULT '1.0',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registration (
		id              TEXT PRIMARY KEY,
		event_id        TEXT NOT NULL REFERENCES event(id),
		status          TEXT NOT NULL DEFAULT 'pending',
		payment_status  TEXT NOT NULL DEFAULT 'not_paid',
		total_amount    TEXT NOT NULL DEFAULT '0',
		agrees_to_terms BOOLEAN NOT NULL DEFAULT FALSE,
		agreed_terms_id TEXT REFERENCES terms_and_conditions(id),
		payment_id      TEXT REFERENCES payment(id),
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS athlete (
		id               TEXT PRIMARY KEY,
		registration_id  TEXT NOT NULL REFERENCES registration(id),
		race_id          TEXT NOT NULL REFERENCES race(id),
		package_id       TEXT NOT NULL REFERENCES race_package(id),
		first_name       TEXT NOT NULL,
		last_name        TEXT NOT NULL,
		fathers_name     TEXT NOT NULL DEFAULT '',
		team             TEXT NOT NULL DEFAULT '',
		email            TEXT NOT NULL,
		phone            TEXT NOT NULL,
		sex              TEXT NOT NULL,
		dob              DATETIME,
		hometown         TEXT NOT NULL DEFAULT '',
		pickup_point_id  TEXT REFERENCES pickup_point(id),
		role_id          TEXT REFERENCES race_role(id),
		special_price_id TEXT REFERENCES race_special_price(id),
		bib_number       TEXT NOT NULL DEFAULT '',
		selected_options TEXT NOT NULL DEFAULT '{}',
		created_at       DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payment (
		id             TEXT PRIMARY KEY,
		order_code     TEXT NOT NULL,
		transaction_id TEXT,
		status         TEXT NOT NULL DEFAULT 'waiting',
		total          TEXT NOT NULL DEFAULT '0',
		currency       TEXT NOT NULL DEFAULT 'EUR',
		description    TEXT NOT NULL DEFAULT '',
		billing_name   TEXT NOT NULL DEFAULT '',
		billing_email  TEXT NOT NULL DEFAULT '',
		billing_phone  TEXT NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_order_code ON payment(order_code)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_transaction_id ON payment(transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_athlete_registration ON athlete(registration_id)`,
	`CREATE INDEX IF NOT EXISTS idx_registration_event ON registration(event_id)`,
}

func migrate(db *dbx.DB) error {
	for _, stmt := range schema {
		if _, err := db.NewQuery(stmt).Execute(); err != nil {
			return err
		}
	}
	return nil
}
