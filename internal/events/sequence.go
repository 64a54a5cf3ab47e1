package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type SequenceStore interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSequencer hands out gap-free, per-partition event sequence numbers.
type PostgresSequencer struct {
	store SequenceStore
}

func NewPostgresSequencer(store SequenceStore) *PostgresSequencer {
	return &PostgresSequencer{store: store}
}

func (s *PostgresSequencer) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	var seq int64
	err := s.store.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, partitionKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", partitionKey, err)
	}
	return seq, nil
}
