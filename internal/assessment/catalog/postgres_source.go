// internal/assessment/catalog/postgres_source.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"agritour-certification/internal/models"
)

const selectTemplateRows = `
	SELECT section_id, section_name, section_description, section_kind, required_for, add_on,
	       question_id, question_text, evaluation_criteria,
	       rubric_zero, rubric_half, rubric_full, order_index, applicable_categories
	FROM assessment_templates
	ORDER BY id`

// PostgresSource reads template rows from the assessment_templates table. Rows are
// read in insertion order so section order follows the seed file.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Fetch(ctx context.Context) (Catalog, error) {
	rows, err := s.db.QueryContext(ctx, selectTemplateRows)
	if err != nil {
		return nil, fmt.Errorf("query assessment_templates: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r           Row
			kind        string
			addOn       sql.NullString
			requiredFor pq.StringArray
			applicable  pq.StringArray
		)
		if err := rows.Scan(
			&r.SectionID, &r.SectionName, &r.SectionDescription, &kind, &requiredFor, &addOn,
			&r.QuestionID, &r.QuestionText, &r.EvaluationCriteria,
			&r.RubricZero, &r.RubricHalf, &r.RubricFull, &r.OrderIndex, &applicable,
		); err != nil {
			return nil, fmt.Errorf("scan template row: %w", err)
		}
		r.SectionKind = SectionKind(kind)
		r.AddOn = models.AddOnID(addOn.String)
		r.RequiredFor = toCategories(requiredFor)
		r.ApplicableCategories = toCategories(applicable)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template rows: %w", err)
	}
	return GroupRows(out), nil
}

// InsertRows writes rows in order inside tx, replacing whatever was there.
func InsertRows(ctx context.Context, tx *sql.Tx, rows []Row) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_templates`); err != nil {
		return fmt.Errorf("clear assessment_templates: %w", err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assessment_templates (
				section_id, section_name, section_description, section_kind, required_for, add_on,
				question_id, question_text, evaluation_criteria,
				rubric_zero, rubric_half, rubric_full, order_index, applicable_categories
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			r.SectionID, r.SectionName, r.SectionDescription, string(r.SectionKind), fromCategories(r.RequiredFor), string(r.AddOn),
			r.QuestionID, r.QuestionText, r.EvaluationCriteria,
			r.RubricZero, r.RubricHalf, r.RubricFull, r.OrderIndex, fromCategories(r.ApplicableCategories),
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", r.QuestionID, err)
		}
	}
	return nil
}

func toCategories(in pq.StringArray) []models.Category {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Category, len(in))
	for i, c := range in {
		out[i] = models.Category(c)
	}
	return out
}

func fromCategories(in []models.Category) pq.StringArray {
	out := make(pq.StringArray, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}
