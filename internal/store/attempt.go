package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/session"
)

type attemptRepo struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

var attemptColumns = []string{
	"id", "sequence", "grade_band", "error_count", "submission", "result", "score_error", "created_at", "updated_at",
}

func (r *attemptRepo) Save(ctx context.Context, a *Attempt) error {
	if a.ID == "" || a.Submission == nil {
		return fmt.Errorf("save attempt: id and submission are required")
	}
	sub, err := json.Marshal(a.Submission)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	ins := r.b.Insert(attemptsTable.Name).
		Set("id", a.ID).
		Set("sequence", seq).
		Set("session_id", a.Submission.SessionID).
		Set("test_name", a.Submission.TestName).
		Set("submit_reason", string(a.Submission.Reason)).
		Set("submission", string(sub)).
		Set("incomplete_grading", a.FluencyPending).
		Set("score_error", a.ScoreError).
		Set("created_at", now).
		Set("updated_at", now)
	switch {
	case a.Reading != nil && !a.FluencyPending:
		ins.Set("grade_band", a.Reading.GradeBand).Set("error_count", a.Reading.ErrorCount)
	case a.Reading != nil:
		ins.Set("grade_band", a.Reading.GradeBand)
	default:
		ins.Set("grade_band", a.Submission.GradeBand)
	}
	if a.Result != nil {
		res, err := json.Marshal(a.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		setResultColumns(ins.Set, a.Result, res)
	}

	query, args := ins.Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	a.Sequence, a.CreatedAt, a.UpdatedAt = seq, now, now
	return nil
}

func setResultColumns[T any](set func(string, any) T, res *placement.Result, raw []byte) {
	tier := res.Tier.String()
	if res.Reading != nil {
		tier = res.Reading.EffectiveTier.String()
	}
	set("result", string(raw))
	set("score", res.Score)
	set("tier", tier)
	set("incomplete_grading", res.IncompleteGrading)
	set("thresholds_version", res.ThresholdsVersion)
}

func (r *attemptRepo) Get(ctx context.Context, id string) (*Attempt, error) {
	query, args := r.b.Select(attemptColumns...).
		From(r.b.Table(attemptsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	a, err := scanAttempt(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

func (r *attemptRepo) UpdateResult(ctx context.Context, id string, res *placement.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	upd := r.b.Update(attemptsTable.Name).
		Set("score_error", "").
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id))
	setResultColumns(upd.Set, res, raw)
	return r.exec(ctx, upd, id, "update attempt result")
}

func (r *attemptRepo) SetScoreError(ctx context.Context, id, msg string) error {
	upd := r.b.Update(attemptsTable.Name).
		Set("score_error", msg).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id))
	return r.exec(ctx, upd, id, "set score error")
}

func (r *attemptRepo) SetErrorCount(ctx context.Context, id string, n int) error {
	upd := r.b.Update(attemptsTable.Name).
		Set("error_count", n).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(entsql.EQ("id", id), entsql.NEQ("grade_band", "")))
	return r.exec(ctx, upd, id, "set error count")
}

// exec runs an update of a single attempt and maps zero affected rows to
// ErrNotFound.
func (r *attemptRepo) exec(ctx context.Context, upd *entsql.UpdateBuilder, id, op string) error {
	query, args := upd.Query()
	out, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *attemptRepo) ListIncomplete(ctx context.Context, limit int) ([]*Attempt, error) {
	return r.list(ctx, entsql.EQ("incomplete_grading", true), limit)
}

func (r *attemptRepo) ListUntiered(ctx context.Context, limit int) ([]*Attempt, error) {
	return r.list(ctx, entsql.NEQ("score_error", ""), limit)
}

func (r *attemptRepo) list(ctx context.Context, where *entsql.Predicate, limit int) ([]*Attempt, error) {
	sel := r.b.Select(attemptColumns...).
		From(r.b.Table(attemptsTable.Name)).
		Where(where).
		OrderBy(entsql.Asc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []*Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*Attempt, error) {
	var (
		a          Attempt
		gradeBand  string
		errorCount sql.NullInt64
		sub        []byte
		res        []byte
	)
	if err := row.Scan(&a.ID, &a.Sequence, &gradeBand, &errorCount, &sub, &res, &a.ScoreError, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	a.Submission = &session.Submission{}
	if err := json.Unmarshal(sub, a.Submission); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	if gradeBand != "" {
		a.Reading = &placement.ReadingInput{GradeBand: gradeBand, ErrorCount: int(errorCount.Int64)}
		a.FluencyPending = !errorCount.Valid
	}
	if len(res) > 0 {
		a.Result = &placement.Result{}
		if err := json.Unmarshal(res, a.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &a, nil
}
