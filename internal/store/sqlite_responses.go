package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	encodingIdentity = "identity"
	encodingZstd     = "zstd"

	// Bodies smaller than this are stored uncompressed.
	compressThreshold = 512

	// Fixed-width so that expiry comparisons in SQL are lexicographic.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// GetResponse returns the cached body for key if it has not expired at now.
func (s *Store) GetResponse(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	var (
		body       []byte
		encoding   string
		expiresUTC string
	)
	row := s.db.QueryRowContext(ctx, `SELECT body, encoding, expires_utc FROM responses WHERE cache_key = ?`, key)
	if err := row.Scan(&body, &encoding, &expiresUTC); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached response: %w", err)
	}
	expires, err := time.Parse(timeLayout, expiresUTC)
	if err != nil || !now.UTC().Before(expires) {
		return nil, false, nil
	}
	switch encoding {
	case encodingIdentity:
		return body, true, nil
	case encodingZstd:
		out, err := zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return nil, false, fmt.Errorf("decompress cached response %q: %w", key, err)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("cached response %q has unknown encoding %q", key, encoding)
	}
}

// PutResponse stores body under key until now+ttl.
func (s *Store) PutResponse(ctx context.Context, key string, body []byte, ttl time.Duration, now time.Time) error {
	encoding := encodingIdentity
	stored := body
	if len(body) >= compressThreshold {
		encoding = encodingZstd
		stored = zstdEncoder.EncodeAll(body, make([]byte, 0, len(body)/3))
	}
	now = now.UTC()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (cache_key, body, encoding, size, fetched_utc, expires_utc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			body=excluded.body,
			encoding=excluded.encoding,
			size=excluded.size,
			fetched_utc=excluded.fetched_utc,
			expires_utc=excluded.expires_utc
	`, key, stored, encoding, len(body), now.Format(timeLayout), now.Add(ttl).Format(timeLayout)); err != nil {
		return fmt.Errorf("put cached response: %w", err)
	}
	return nil
}

// SweepResponses deletes entries that expired at or before now and records
// the pass in app_state.
func (s *Store) SweepResponses(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE expires_utc <= ?`, now.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("sweep cached responses: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep cached responses: %w", err)
	}
	if err := s.SetAppState(ctx, StateLastSweepUTC, now.Format(time.RFC3339Nano)); err != nil {
		return removed, err
	}
	if err := s.SetAppState(ctx, StateLastSweepRemoved, strconv.FormatInt(removed, 10)); err != nil {
		return removed, err
	}
	return removed, nil
}

// CountResponses returns the number of stored entries, expired or not.
func (s *Store) CountResponses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached responses: %w", err)
	}
	return n, nil
}
