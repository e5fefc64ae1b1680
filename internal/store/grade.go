package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type gradeRepo struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

func (r *gradeRepo) Save(ctx context.Context, g *Grade) error {
	switch g.Source {
	case SourceManual, SourceLLM:
	default:
		return fmt.Errorf("save grade: unknown source %q", g.Source)
	}
	if g.AttemptID == "" || g.QuestionID == "" {
		return fmt.Errorf("save grade: attempt and question ids are required")
	}

	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query, args := r.b.Insert(gradesTable.Name).
		Columns("sequence", "attempt_id", "question_id", "correct", "source", "rationale", "created_at").
		Values(seq, g.AttemptID, g.QuestionID, g.Correct, g.Source, g.Rationale, now).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save grade: %w", err)
	}
	g.Sequence, g.CreatedAt = seq, now
	return nil
}

func (r *gradeRepo) List(ctx context.Context, attemptID string) ([]Grade, error) {
	query, args := r.b.Select("attempt_id", "question_id", "correct", "source", "rationale", "sequence", "created_at").
		From(r.b.Table(gradesTable.Name)).
		Where(entsql.EQ("attempt_id", attemptID)).
		OrderBy(entsql.Asc("sequence")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	var out []Grade
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.AttemptID, &g.QuestionID, &g.Correct, &g.Source, &g.Rationale, &g.Sequence, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan grade: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *gradeRepo) ForAttempt(ctx context.Context, attemptID string) (map[string]bool, error) {
	grades, err := r.List(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return Resolve(grades), nil
}

// Resolve picks the effective grade per question from grades in sequence
// order. Manual grades override LLM grades regardless of order.
func Resolve(grades []Grade) map[string]bool {
	out := make(map[string]bool, len(grades))
	manual := make(map[string]bool)
	for _, g := range grades {
		if g.Source == SourceManual {
			manual[g.QuestionID] = true
		} else if manual[g.QuestionID] {
			continue
		}
		out[g.QuestionID] = g.Correct
	}
	return out
}
