// internal/review/repository.go
package review

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/models"
)

// Repository persists applications and reviewer work.
type Repository interface {
	Get(ctx context.Context, id string) (*models.ApplicationRecord, error)
	Scores(ctx context.Context, id string) ([]models.ReviewScore, error)
	// SaveScores upserts scores and moves a pending application to reviewing.
	SaveScores(ctx context.Context, id string, scores []models.ReviewScore, now time.Time) error
	// Decide completes the application. It reports false when the application
	// was already completed.
	Decide(ctx context.Context, id string, decision models.Decision, note, reviewerID string, now time.Time) (bool, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectApplication = `
	SELECT id, applicant_id, year, farm_name, company_name, owner_name, email, phone, city,
	       category, add_ons, total_score, readiness, priority, reviewer_queue, status,
	       decision, decision_note, form_data, submitted_at, updated_at
	FROM applications
	WHERE id = $1`

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	var (
		rec      models.ApplicationRecord
		addOns   pq.StringArray
		formData []byte
	)
	err := r.db.QueryRowContext(ctx, selectApplication, id).Scan(
		&rec.ID, &rec.ApplicantID, &rec.Year, &rec.FarmName, &rec.CompanyName, &rec.OwnerName,
		&rec.Email, &rec.Phone, &rec.City, &rec.Category, &addOns, &rec.TotalScore,
		&rec.Readiness, &rec.Priority, &rec.ReviewerQueue, &rec.Status, &rec.Decision,
		&rec.DecisionNote, &formData, &rec.SubmittedAt, &rec.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewResourceNotFoundError("applications", "id: "+id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("application_by_id", err)
	}

	rec.AddOns = make([]models.AddOnID, 0, len(addOns))
	for _, a := range addOns {
		rec.AddOns = append(rec.AddOns, models.AddOnID(a))
	}
	if len(formData) > 0 {
		rec.Form = &models.FormState{}
		if err := json.Unmarshal(formData, rec.Form); err != nil {
			return nil, errors.NewInternalError(fmt.Errorf("decode form_data of %s: %w", id, err))
		}
	}
	return &rec, nil
}

func (r *PostgresRepository) Scores(ctx context.Context, id string) ([]models.ReviewScore, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question_id, score, comment, reviewer_id
		FROM review_scores
		WHERE application_id = $1
		ORDER BY question_id`, id)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("review_scores", err)
	}
	defer rows.Close()

	scores := []models.ReviewScore{}
	for rows.Next() {
		var (
			s     models.ReviewScore
			value sql.NullFloat64
		)
		if err := rows.Scan(&s.QuestionID, &value, &s.Comment, &s.ReviewerID); err != nil {
			return nil, errors.NewQueryExecutionFailedError("review_scores", err)
		}
		s.Score = models.UnsetScore()
		if value.Valid {
			s.Score = models.NewScore(value.Float64)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("review_scores", err)
	}
	return scores, nil
}

func (r *PostgresRepository) SaveScores(ctx context.Context, id string, scores []models.ReviewScore, now time.Time) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, s := range scores {
			var value interface{}
			if s.Score.IsSet() {
				value = s.Score.Value()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO review_scores (application_id, question_id, score, comment, reviewer_id, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (application_id, question_id)
				DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment,
				              reviewer_id = EXCLUDED.reviewer_id, updated_at = EXCLUDED.updated_at`,
				id, s.QuestionID, value, s.Comment, s.ReviewerID, now)
			if err != nil {
				return fmt.Errorf("upsert score %s: %w", s.QuestionID, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE applications SET status = $2, updated_at = $3
			WHERE id = $1 AND status = $4`,
			id, string(models.StatusReviewing), now, string(models.StatusPending))
		return err
	})
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (r *PostgresRepository) Decide(ctx context.Context, id string, decision models.Decision, note, reviewerID string, now time.Time) (bool, error) {
	var updated bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE applications
			SET status = $2, decision = $3, decision_note = $4, updated_at = $5
			WHERE id = $1 AND status <> $2`,
			id, string(models.StatusCompleted), string(decision), note, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		updated = true

		details, _ := json.Marshal(map[string]string{"decision": string(decision), "note": note})
		_, err = tx.ExecContext(ctx, `
			INSERT INTO audit_log (entity_type, entity_id, action, actor, details)
			VALUES ('application', $1, 'review_decided', $2, $3)`,
			id, reviewerID, details)
		return err
	})
	if err != nil {
		return false, errors.NewDatabaseInsertFailedError(err)
	}
	return updated, nil
}
