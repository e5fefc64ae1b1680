package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter hands out one monotonic sequence shared by every table,
// so attempts, grades and LLM events can be ordered against each other.
//
// The increment is raw SQL because the builder has no atomic counter; the
// mutex serializes within the process and RETURNING makes each increment
// atomic in the database.
type sequenceCounter struct {
	mu   sync.Mutex
	db   *sql.DB
	next string
	args []any
}

func newSequenceCounter(ctx context.Context, db *sql.DB, dialectName string) (*sequenceCounter, error) {
	b := entsql.Dialect(dialectName)
	query, args := b.Insert(globalSequenceTable.Name).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	next, args := b.Update(globalSequenceTable.Name).
		Add("next_val", 1).
		Where(entsql.EQ("id", 1)).
		Returning("next_val").
		Query()

	return &sequenceCounter{db: db, next: next, args: args}, nil
}

// Next returns the next sequence number. The first call returns 1.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var v int64
	if err := sc.db.QueryRowContext(ctx, sc.next, sc.args...).Scan(&v); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return v - 1, nil
}
