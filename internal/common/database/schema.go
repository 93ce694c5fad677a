// internal/common/database/schema.go
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create the tables the portal and workers share. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS assessment_templates (
		id                    SERIAL PRIMARY KEY,
		section_id            TEXT NOT NULL,
		section_name          TEXT NOT NULL,
		section_description   TEXT NOT NULL DEFAULT '',
		section_kind          TEXT NOT NULL DEFAULT 'base',
		required_for          TEXT[] NOT NULL DEFAULT '{}',
		add_on                TEXT NOT NULL DEFAULT '',
		question_id           TEXT NOT NULL UNIQUE,
		question_text         TEXT NOT NULL,
		evaluation_criteria   TEXT NOT NULL DEFAULT '',
		rubric_zero           TEXT NOT NULL DEFAULT '',
		rubric_half           TEXT NOT NULL DEFAULT '',
		rubric_full           TEXT NOT NULL DEFAULT '',
		order_index           INTEGER NOT NULL DEFAULT 0,
		applicable_categories TEXT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id             UUID PRIMARY KEY,
		applicant_id   TEXT NOT NULL,
		year           INTEGER NOT NULL,
		farm_name      TEXT NOT NULL,
		company_name   TEXT NOT NULL DEFAULT '',
		owner_name     TEXT NOT NULL DEFAULT '',
		email          TEXT NOT NULL DEFAULT '',
		phone          TEXT NOT NULL DEFAULT '',
		city           TEXT NOT NULL DEFAULT '',
		category       TEXT NOT NULL,
		add_ons        TEXT[] NOT NULL DEFAULT '{}',
		total_score    NUMERIC(6,1) NOT NULL DEFAULT 0,
		readiness      TEXT NOT NULL DEFAULT '',
		priority       TEXT NOT NULL DEFAULT 'normal',
		reviewer_queue TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'pending',
		decision       TEXT NOT NULL DEFAULT '',
		decision_note  TEXT NOT NULL DEFAULT '',
		form_data      JSONB NOT NULL,
		submitted_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (applicant_id, year)
	)`,
	`CREATE TABLE IF NOT EXISTS review_scores (
		application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		question_id    TEXT NOT NULL,
		score          NUMERIC(3,1),
		comment        TEXT NOT NULL DEFAULT '',
		reviewer_id    TEXT NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (application_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reviewer_queues (
		category   TEXT NOT NULL,
		add_on     TEXT NOT NULL DEFAULT '',
		queue_name TEXT NOT NULL,
		reviewers  TEXT[] NOT NULL DEFAULT '{}',
		PRIMARY KEY (category, add_on)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id          BIGSERIAL PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		action      TEXT NOT NULL,
		actor       TEXT NOT NULL DEFAULT 'system',
		details     JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
