// Package persist records the audit trail of emitted mentions to
// PostgreSQL, grounded on
// MrWong99-glyphoxa/pkg/memory/postgres/store.go's pgxpool-backed store
// shape (idempotent migration + a thin struct wrapping a pool). Raw PCM
// is never stored here — only Mention metadata — per spec.md §1's
// explicit exclusion of raw-audio persistence.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadcore/segmenter/internal/driver"
)

const ddlMentions = `
CREATE TABLE IF NOT EXISTS vad_mentions (
    id          BIGSERIAL    PRIMARY KEY,
    signal_id   TEXT         NOT NULL,
    start_byte  BIGINT       NOT NULL,
    stop_byte   BIGINT       NOT NULL,
    detector    TEXT         NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vad_mentions_signal_id
    ON vad_mentions (signal_id);

CREATE INDEX IF NOT EXISTS idx_vad_mentions_recorded_at
    ON vad_mentions (recorded_at);
`

// Store is a PostgreSQL-backed audit sink for driver.Mention values.
// Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, runs Migrate, and returns a ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the vad_mentions table and its indexes if they don't
// already exist. Idempotent, safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlMentions); err != nil {
		return fmt.Errorf("persist: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RecordMention appends a Mention to the audit trail, tagged with the
// detector that produced it (e.g. "webrtcvad", "stub", "gating").
func (s *Store) RecordMention(ctx context.Context, m driver.Mention, detector string) error {
	const q = `
		INSERT INTO vad_mentions (signal_id, start_byte, stop_byte, detector)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, q, m.SignalID, m.Start, m.Stop, detector); err != nil {
		return fmt.Errorf("persist: record mention: %w", err)
	}
	return nil
}

// MentionRecord is a row read back from the audit trail.
type MentionRecord struct {
	SignalID   string
	Start      int64
	Stop       int64
	Detector   string
	RecordedAt time.Time
}

// RecentMentions returns mentions for signalID recorded within the last
// window, oldest first.
func (s *Store) RecentMentions(ctx context.Context, signalID string, window time.Duration) ([]MentionRecord, error) {
	const q = `
		SELECT signal_id, start_byte, stop_byte, detector, recorded_at
		FROM   vad_mentions
		WHERE  signal_id = $1
		  AND  recorded_at >= now() - ($2::bigint * interval '1 microsecond')
		ORDER  BY recorded_at`

	rows, err := s.pool.Query(ctx, q, signalID, window.Microseconds())
	if err != nil {
		return nil, fmt.Errorf("persist: recent mentions: %w", err)
	}
	defer rows.Close()

	var out []MentionRecord
	for rows.Next() {
		var rec MentionRecord
		if err := rows.Scan(&rec.SignalID, &rec.Start, &rec.Stop, &rec.Detector, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("persist: scan mention: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persist: recent mentions: %w", err)
	}
	return out, nil
}
