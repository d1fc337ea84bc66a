package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ar3ac/jobhunter/internal/fingerprint"
	"github.com/ar3ac/jobhunter/internal/model"
)

// Ensure PostgresStore implements model.Store.
var _ model.Store = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS postings (
	id          BIGSERIAL PRIMARY KEY,
	strong_key  TEXT NOT NULL UNIQUE,
	soft_key    TEXT NOT NULL,
	title       TEXT,
	company     TEXT,
	location    TEXT,
	url         TEXT,
	source      TEXT,
	posted_at   TEXT,
	fetched_at  TIMESTAMPTZ NOT NULL,
	description TEXT
);
CREATE INDEX IF NOT EXISTS idx_postings_soft ON postings(soft_key);`

const postgresInsert = `INSERT INTO postings
	(strong_key, soft_key, title, company, location, url, source, posted_at, fetched_at, description)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (strong_key) DO NOTHING`

const postgresSelectColumns = `strong_key, soft_key, coalesce(title, ''), coalesce(company, ''),
	coalesce(location, ''), coalesce(url, ''), coalesce(source, ''), coalesce(posted_at, ''),
	fetched_at, coalesce(description, '')`

// PostgresStore keeps postings in PostgreSQL. Every insert is its own
// statement; the unique constraint on strong_key makes concurrent writers
// safe without extra locking.
type PostgresStore struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger *slog.Logger
}

// NewPostgresStore connects to dsn, verifies connectivity and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now, logger: logger}, nil
}

// Insert creates a record for p unless one with the same strong key exists.
func (s *PostgresStore) Insert(ctx context.Context, p model.Posting) (Outcome, error) {
	outcome, _, err := s.insert(ctx, p)
	return outcome, err
}

func (s *PostgresStore) insert(ctx context.Context, p model.Posting) (Outcome, time.Time, error) {
	keys := fingerprint.Derive(p)
	fetchedAt := s.now().UTC().Truncate(time.Second)

	tag, err := s.pool.Exec(ctx, postgresInsert,
		keys.Strong, keys.Soft,
		p.Title, p.Company, p.Location, p.URL, p.Source,
		nullIfEmpty(p.PostedAt),
		fetchedAt,
		p.Description,
	)
	if err != nil {
		return Duplicate, time.Time{}, fmt.Errorf("inserting posting %s: %w", keys.Strong, err)
	}
	if tag.RowsAffected() == 0 {
		return Duplicate, time.Time{}, nil
	}
	return Inserted, fetchedAt, nil
}

// InsertIfNew inserts each posting that is not already stored and returns the
// accepted ones in submission order. Records failing for non-duplicate
// reasons are logged and skipped. The store being unreachable before the
// first write is returned as an error.
func (s *PostgresStore) InsertIfNew(ctx context.Context, postings []model.Posting) ([]model.Posting, error) {
	if err := s.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	var accepted []model.Posting
	for _, p := range postings {
		outcome, fetchedAt, err := s.insert(ctx, p)
		if err != nil {
			s.logger.Error("skipping posting",
				"source", p.Source,
				"title", p.Title,
				"url", p.URL,
				"error", err,
			)
			continue
		}
		if outcome == Inserted {
			p.FetchedAt = &fetchedAt
			accepted = append(accepted, p)
		}
	}
	return accepted, nil
}

// SoftMatches returns every stored record with the given soft key, oldest first.
func (s *PostgresStore) SoftMatches(ctx context.Context, softKey string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+postgresSelectColumns+" FROM postings WHERE soft_key = $1 ORDER BY id", softKey)
	if err != nil {
		return nil, fmt.Errorf("querying soft matches for %s: %w", softKey, err)
	}
	return scanPostgresRecords(rows)
}

// Recent returns the most recently stored records, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+postgresSelectColumns+" FROM postings ORDER BY id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent postings: %w", err)
	}
	return scanPostgresRecords(rows)
}

// CandidateGroups returns up to limit soft keys shared by more than one record.
func (s *PostgresStore) CandidateGroups(ctx context.Context, limit int) ([]CandidateGroup, error) {
	rows, err := s.pool.Query(ctx, `SELECT soft_key FROM postings
		GROUP BY soft_key HAVING COUNT(*) > 1
		ORDER BY MAX(id) DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying candidate groups: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting candidate soft keys: %w", err)
	}

	groups := make([]CandidateGroup, 0, len(keys))
	for _, k := range keys {
		records, err := s.SoftMatches(ctx, k)
		if err != nil {
			return nil, err
		}
		groups = append(groups, CandidateGroup{SoftKey: k, Records: records})
	}
	return groups, nil
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM postings").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting postings: %w", err)
	}
	return count, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresRecords(rows pgx.Rows) ([]Record, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.StrongKey, &r.SoftKey, &r.Title, &r.Company, &r.Location, &r.URL,
			&r.Source, &r.PostedAt, &r.FetchedAt, &r.Description)
		return r, err
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scanning postings: %w", err)
	}
	return records, nil
}
