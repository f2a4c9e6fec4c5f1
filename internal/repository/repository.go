// Package repository holds the PostgreSQL data access for towers, visits
// and preferences. Lookups of a single row return nil, nil when nothing
// matches; only database failures are errors.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// batchSender is satisfied by both *pgxpool.Pool and pgx.Tx.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// sendBatch runs every queued statement and sums the affected rows.
func sendBatch(ctx context.Context, q batchSender, b *pgx.Batch) (int64, error) {
	if b.Len() == 0 {
		return 0, nil
	}

	results := q.SendBatch(ctx, b)
	defer results.Close()

	var affected int64
	for i := 0; i < b.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return affected, err
		}
		affected += tag.RowsAffected()
	}
	return affected, results.Close()
}
