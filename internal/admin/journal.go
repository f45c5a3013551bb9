package admin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS revisions (
	id         TEXT PRIMARY KEY,
	file       TEXT NOT NULL,
	prev_etag  TEXT NOT NULL DEFAULT '',
	etag       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS revisions_file ON revisions (file, id);
`

const defaultRevisionLimit = 50

// Revision is one journaled save.
type Revision struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	PrevETag  string    `json:"prevEtag,omitempty"`
	ETag      string    `json:"etag"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Journal records successful saves in a SQLite database. A nil *Journal is
// valid and records nothing.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// OpenJournal opens or creates the journal database at path.
func OpenJournal(ctx context.Context, path string) (*Journal, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores a completed write and returns its revision.
func (j *Journal) Record(ctx context.Context, res WriteResult) (Revision, error) {
	if j == nil {
		return Revision{}, nil
	}
	now := j.now().UTC()
	rev := Revision{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		File:      res.Name,
		PrevETag:  res.PrevETag,
		ETag:      res.ETag,
		Size:      res.Size,
		CreatedAt: now,
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO revisions (id, file, prev_etag, etag, size, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.File, rev.PrevETag, rev.ETag, rev.Size, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Revision{}, fmt.Errorf("record revision: %w", err)
	}
	return rev, nil
}

// List returns the newest revisions first, optionally for one file.
func (j *Journal) List(ctx context.Context, file string, limit int) ([]Revision, error) {
	if j == nil {
		return []Revision{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = defaultRevisionLimit
	}
	query := `SELECT id, file, prev_etag, etag, size, created_at FROM revisions`
	args := []any{}
	if file != "" {
		query += ` WHERE file = ?`
		args = append(args, file)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	out := []Revision{}
	for rows.Next() {
		var (
			rev     Revision
			created string
		)
		if err := rows.Scan(&rev.ID, &rev.File, &rev.PrevETag, &rev.ETag, &rev.Size, &created); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rev.CreatedAt = t
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}
