package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfabric/execdb/internal/domain"
)

// JournalStore implements domain.EventJournal using PostgreSQL. Every record
// the execution database persists to Redis gets one append-only audit row
// here, so operators can reconstruct what was written and when even after a
// namespace flush.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// Record appends one journal row.
func (s *JournalStore) Record(ctx context.Context, entry domain.JournalEntry) error {
	const query = `
		INSERT INTO execution_journal (trader_id, kind, entity_id, record_type, payload)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query,
		string(entry.TraderID), entry.Kind, entry.EntityID, entry.RecordType, entry.Payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: journal %s %s: %w", entry.Kind, entry.EntityID, err)
	}
	return nil
}

// List returns the most recent journal rows for a trader, newest first.
func (s *JournalStore) List(ctx context.Context, traderID domain.TraderID, limit int) ([]domain.JournalEntry, error) {
	query := `
		SELECT id, trader_id, kind, entity_id, record_type, payload, recorded_at
		FROM execution_journal
		WHERE trader_id = $1
		ORDER BY recorded_at DESC, id DESC`
	args := []any{string(traderID)}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal for %s: %w", traderID, err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var (
			e      domain.JournalEntry
			trader string
		)
		if err := rows.Scan(&e.ID, &trader, &e.Kind, &e.EntityID, &e.RecordType, &e.Payload, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan journal entry: %w", err)
		}
		e.TraderID = domain.TraderID(trader)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list journal rows: %w", err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.EventJournal = (*JournalStore)(nil)
