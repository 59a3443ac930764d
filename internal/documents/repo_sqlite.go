package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Fixed-width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepo implements Repo on SQLite (modernc.org/sqlite). Timestamps are
// stored as UTC text.
type SQLiteRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSQLiteRepo constructs a SQLiteRepo.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new document.
func (r *SQLiteRepo) Create(ctx context.Context, doc StoredDocument) (StoredDocument, error) {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    original_name,
    file_type,
    storage_path,
    status,
    extracted_pages,
    created_at,
    updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	pages, err := encodePages(doc.ExtractedText.Pages)
	if err != nil {
		return StoredDocument{}, err
	}
	now := r.clock()
	ts := now.Format(sqliteTimeLayout)

	_, err = r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.Owner,
		doc.OriginalName,
		string(doc.FileType),
		doc.StoragePath,
		string(doc.Status),
		pages,
		ts,
		ts,
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return StoredDocument{}, ErrDuplicateID
		}
		return StoredDocument{}, err
	}

	doc.CreatedAt = now
	doc.UpdatedAt = now
	return doc, nil
}

// GetByIDAndOwner fetches a document by id for an owner.
func (r *SQLiteRepo) GetByIDAndOwner(ctx context.Context, id, owner string) (StoredDocument, error) {
	query := `
SELECT ` + pgSelectColumns + `
FROM documents
WHERE id = ? AND owner_id = ?
LIMIT 1`

	doc, err := scanSQLiteDocument(r.DB.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredDocument{}, ErrNotFound
		}
		return StoredDocument{}, err
	}
	return doc, nil
}

// ListByOwner lists documents ordered newest-first.
func (r *SQLiteRepo) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]StoredDocument, error) {
	limit, offset = clampPage(limit, offset)
	query := `
SELECT ` + pgSelectColumns + `
FROM documents
WHERE owner_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

	rows, err := r.DB.QueryContext(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredDocument{}
	for rows.Next() {
		doc, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteByIDAndOwner removes a document owned by owner.
func (r *SQLiteRepo) DeleteByIDAndOwner(ctx context.Context, id, owner string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

// textTime scans a timestamp stored as text.
type textTime struct {
	t *time.Time
}

func (tt textTime) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		*tt.t = v.UTC()
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	parsed, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	}
	*tt.t = parsed.UTC()
	return nil
}

func scanSQLiteDocument(row rowScanner) (StoredDocument, error) {
	return scanDocument(timestampsAsText{row})
}

// timestampsAsText adapts the last two scan targets (created_at, updated_at)
// to textTime so scanDocument can be shared with the Postgres repo.
type timestampsAsText struct {
	row rowScanner
}

func (s timestampsAsText) Scan(dest ...any) error {
	n := len(dest)
	if n >= 2 {
		for i := n - 2; i < n; i++ {
			if t, ok := dest[i].(*time.Time); ok {
				dest[i] = textTime{t: t}
			}
		}
	}
	return s.row.Scan(dest...)
}

func isSQLiteConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

var _ Repo = (*SQLiteRepo)(nil)
