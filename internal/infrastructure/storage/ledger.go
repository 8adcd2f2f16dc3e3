package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// AlreadyProcessed returns the subset of dirnames that were posted before.
func (s *Store) AlreadyProcessed(ctx context.Context, dirnames []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if s == nil || s.db == nil || len(dirnames) == 0 {
		return result, nil
	}

	query, args, err := sq.Select("dirname").
		From("processed").
		Where(sq.Eq{"dirname": dirnames}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build processed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dirname string
		if err := rows.Scan(&dirname); err != nil {
			return nil, fmt.Errorf("scan dirname: %w", err)
		}
		result[dirname] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SaveProcessed records dirnames as posted at the given time.
func (s *Store) SaveProcessed(ctx context.Context, dirnames []string, at time.Time) error {
	if s == nil || s.db == nil || len(dirnames) == 0 {
		return nil
	}

	insert := sq.Insert("processed").Options("OR REPLACE").Columns("dirname", "processed_at")
	for _, dirname := range dirnames {
		insert = insert.Values(dirname, at.UnixMilli())
	}
	if _, err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}
	return nil
}

// PruneProcessed drops ledger entries recorded before cutoff.
func (s *Store) PruneProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, sq.Delete("processed").Where(sq.Lt{"processed_at": cutoff.UnixMilli()}))
	if err != nil {
		return 0, fmt.Errorf("prune processed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
