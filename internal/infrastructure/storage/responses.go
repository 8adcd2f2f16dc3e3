package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// CachedResponse is one row of the requests table.
type CachedResponse struct {
	Key         string
	Body        []byte
	Status      int
	ContentType string
	StoredAt    time.Time
}

// LoadResponse fetches the cached response for key. found is false when nothing is stored.
func (s *Store) LoadResponse(ctx context.Context, key string) (CachedResponse, bool, error) {
	query, args, err := sq.Select("request_key", "response", "status", "content_type", "timestamp").
		From("requests").
		Where(sq.Eq{"request_key": key}).
		ToSql()
	if err != nil {
		return CachedResponse{}, false, fmt.Errorf("build response query: %w", err)
	}

	var (
		resp        CachedResponse
		contentType sql.NullString
		status      sql.NullInt64
		storedAt    int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&resp.Key, &resp.Body, &status, &contentType, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedResponse{}, false, nil
	}
	if err != nil {
		return CachedResponse{}, false, fmt.Errorf("load response: %w", err)
	}
	resp.Status = int(status.Int64)
	resp.ContentType = contentType.String
	resp.StoredAt = time.UnixMilli(storedAt)
	return resp, true, nil
}

// SaveResponse inserts or replaces the row for resp.Key.
func (s *Store) SaveResponse(ctx context.Context, resp CachedResponse) error {
	insert := sq.Insert("requests").
		Options("OR REPLACE").
		Columns("request_key", "response", "status", "content_type", "timestamp").
		Values(resp.Key, resp.Body, resp.Status, resp.ContentType, resp.StoredAt.UnixMilli())
	if _, err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

// DeleteResponsesBefore removes cached responses stored before cutoff.
func (s *Store) DeleteResponsesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, sq.Delete("requests").Where(sq.Lt{"timestamp": cutoff.UnixMilli()}))
	if err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
