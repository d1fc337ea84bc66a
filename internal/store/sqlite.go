package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ar3ac/jobhunter/internal/fingerprint"
	"github.com/ar3ac/jobhunter/internal/model"
)

// Ensure SQLiteStore implements model.Store.
var _ model.Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS postings (
	id          INTEGER PRIMARY KEY,
	strong_key  TEXT NOT NULL UNIQUE,
	soft_key    TEXT NOT NULL,
	title       TEXT,
	company     TEXT,
	location    TEXT,
	url         TEXT,
	source      TEXT,
	posted_at   TEXT,
	fetched_at  TEXT NOT NULL,
	description TEXT
);
CREATE INDEX IF NOT EXISTS idx_postings_soft ON postings(soft_key);`

// Only a strong_key conflict is swallowed; any other constraint failure
// surfaces as an error for that record.
const sqliteInsert = `INSERT INTO postings
	(strong_key, soft_key, title, company, location, url, source, posted_at, fetched_at, description)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(strong_key) DO NOTHING`

const sqliteSelectColumns = `strong_key, soft_key, title, company, location, url, source, posted_at, fetched_at, description`

// SQLiteStore keeps postings in a SQLite database, one row per strong key.
// It assumes a single writer; the unique strong_key constraint keeps the
// at-most-one-record rule even so.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// postings table and soft-key index exist.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now, logger: logger}, nil
}

// Insert creates a record for p unless one with the same strong key exists.
// A duplicate is reported as an Outcome, never as an error.
func (s *SQLiteStore) Insert(ctx context.Context, p model.Posting) (Outcome, error) {
	outcome, _, err := s.insert(ctx, p)
	return outcome, err
}

func (s *SQLiteStore) insert(ctx context.Context, p model.Posting) (Outcome, time.Time, error) {
	keys := fingerprint.Derive(p)
	fetchedAt := s.now().UTC().Truncate(time.Second)

	res, err := s.db.ExecContext(ctx, sqliteInsert,
		keys.Strong, keys.Soft,
		p.Title, p.Company, p.Location, p.URL, p.Source,
		nullIfEmpty(p.PostedAt),
		fetchedAt.Format(fetchedAtLayout),
		p.Description,
	)
	if err != nil {
		return Duplicate, time.Time{}, fmt.Errorf("inserting posting %s: %w", keys.Strong, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Duplicate, time.Time{}, fmt.Errorf("inserting posting %s: rows affected: %w", keys.Strong, err)
	}
	if n == 0 {
		return Duplicate, time.Time{}, nil
	}
	return Inserted, fetchedAt, nil
}

// InsertIfNew inserts each posting that is not already stored and returns the
// accepted ones in submission order, stamped with their fetched_at time.
// Every insert commits on its own, so a record that fails for any reason
// other than being a duplicate is logged and skipped without touching the
// rest of the batch. Only the database being unreachable before the first
// write is returned as an error.
func (s *SQLiteStore) InsertIfNew(ctx context.Context, postings []model.Posting) ([]model.Posting, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlite unreachable: %w", err)
	}

	var accepted []model.Posting
	duplicates, failed := 0, 0
	for _, p := range postings {
		outcome, fetchedAt, err := s.insert(ctx, p)
		if err != nil {
			s.logger.Error("skipping posting",
				"source", p.Source,
				"title", p.Title,
				"url", p.URL,
				"error", err,
			)
			failed++
			continue
		}
		if outcome == Duplicate {
			duplicates++
			continue
		}
		p.FetchedAt = &fetchedAt
		accepted = append(accepted, p)
	}

	s.logger.Debug("ingestion batch stored",
		"submitted", len(postings),
		"accepted", len(accepted),
		"duplicates", duplicates,
		"failed", failed,
	)
	return accepted, nil
}

// SoftMatches returns every stored record with the given soft key, oldest first.
func (s *SQLiteStore) SoftMatches(ctx context.Context, softKey string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteSelectColumns+" FROM postings WHERE soft_key = ? ORDER BY id", softKey)
	if err != nil {
		return nil, fmt.Errorf("querying soft matches for %s: %w", softKey, err)
	}
	defer rows.Close()
	return scanSQLiteRecords(rows)
}

// Recent returns the most recently stored records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteSelectColumns+" FROM postings ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent postings: %w", err)
	}
	defer rows.Close()
	return scanSQLiteRecords(rows)
}

// CandidateGroups returns up to limit soft keys shared by more than one
// record, most recently touched first, with their records.
func (s *SQLiteStore) CandidateGroups(ctx context.Context, limit int) ([]CandidateGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT soft_key FROM postings
		GROUP BY soft_key HAVING COUNT(*) > 1
		ORDER BY MAX(id) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying candidate groups: %w", err)
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning candidate soft key: %w", err)
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying candidate groups: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM postings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting postings: %w", err)
	}
	return count, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			r           Record
			title       sql.NullString
			company     sql.NullString
			location    sql.NullString
			url         sql.NullString
			source      sql.NullString
			postedAt    sql.NullString
			fetchedAt   string
			description sql.NullString
		)
		if err := rows.Scan(&r.StrongKey, &r.SoftKey, &title, &company, &location, &url,
			&source, &postedAt, &fetchedAt, &description); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		t, err := time.Parse(fetchedAtLayout, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing fetched_at %q for %s: %w", fetchedAt, r.StrongKey, err)
		}
		r.Title = title.String
		r.Company = company.String
		r.Location = location.String
		r.URL = url.String
		r.Source = source.String
		r.PostedAt = postedAt.String
		r.FetchedAt = t
		r.Description = description.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}
	return records, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
