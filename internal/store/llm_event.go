package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type eventRepo struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	query, args := r.b.Insert(llmRequestEventsTable.Name).
		Set("sequence", seq).
		Set("provider", data.Provider).
		Set("model", data.Model).
		Set("purpose", data.Purpose).
		Set("attempt_id", data.AttemptID).
		Set("input_tokens", data.InputTokens).
		Set("output_tokens", data.OutputTokens).
		Set("latency_ms", data.LatencyMs).
		Set("success", data.Success).
		Set("error_message", data.ErrorMessage).
		Set("request_body", data.RequestBody).
		Set("response_body", data.ResponseBody).
		Set("created_at", time.Now().UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append llm request event: %w", err)
	}
	return nil
}

func (r *eventRepo) LLMUsage(ctx context.Context, attemptID string) (LLMUsage, error) {
	t := r.b.Table(llmRequestEventsTable.Name)
	sel := r.b.Select(
		entsql.Count("*"),
		entsql.Sum(t.C("input_tokens")),
		entsql.Sum(t.C("output_tokens")),
		entsql.Sum("CASE WHEN "+t.C("success")+" THEN 0 ELSE 1 END"),
	).From(t)
	if attemptID != "" {
		sel.Where(entsql.EQ(t.C("attempt_id"), attemptID))
	}
	query, args := sel.Query()

	var (
		u                 LLMUsage
		in, out, failures sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&u.Requests, &in, &out, &failures); err != nil {
		return LLMUsage{}, fmt.Errorf("llm usage: %w", err)
	}
	u.InputTokens = int(in.Int64)
	u.OutputTokens = int(out.Int64)
	u.Failures = int(failures.Int64)
	return u, nil
}
