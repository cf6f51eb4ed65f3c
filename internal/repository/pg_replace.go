package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// replaceTable empties table and sends the queued inserts on tx.
func replaceTable(ctx context.Context, tx pgx.Tx, table string, inserts *pgx.Batch) error {
	if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if inserts.Len() == 0 {
		return nil
	}
	results := tx.SendBatch(ctx, inserts)
	for i := 0; i < inserts.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}
