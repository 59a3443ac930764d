package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const pgSelectColumns = `id, owner_id, original_name, file_type, storage_path, status, extracted_pages, created_at, updated_at`

// Create inserts a new document; created_at/updated_at come from the database.
func (r *PGRepo) Create(ctx context.Context, doc StoredDocument) (StoredDocument, error) {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    original_name,
    file_type,
    storage_path,
    status,
    extracted_pages
) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
RETURNING created_at, updated_at`

	pages, err := encodePages(doc.ExtractedText.Pages)
	if err != nil {
		return StoredDocument{}, err
	}

	err = r.DB.QueryRowContext(
		ctx,
		query,
		doc.ID,
		doc.Owner,
		doc.OriginalName,
		string(doc.FileType),
		doc.StoragePath,
		string(doc.Status),
		pages,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return StoredDocument{}, ErrDuplicateID
		}
		return StoredDocument{}, err
	}
	return doc, nil
}

// GetByIDAndOwner fetches a document by id for an owner.
func (r *PGRepo) GetByIDAndOwner(ctx context.Context, id, owner string) (StoredDocument, error) {
	query := `
SELECT ` + pgSelectColumns + `
FROM documents
WHERE id = $1 AND owner_id = $2
LIMIT 1`

	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredDocument{}, ErrNotFound
		}
		return StoredDocument{}, err
	}
	return doc, nil
}

// ListByOwner lists documents ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]StoredDocument, error) {
	limit, offset = clampPage(limit, offset)
	query := `
SELECT ` + pgSelectColumns + `
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteByIDAndOwner removes a document owned by owner.
func (r *PGRepo) DeleteByIDAndOwner(ctx context.Context, id, owner string) error {
	const query = `DELETE FROM documents WHERE id = $1 AND owner_id = $2`
	res, err := r.DB.ExecContext(ctx, query, id, owner)
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

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one row in pgSelectColumns order. The SQLite repo
// selects the same columns.
func scanDocument(row rowScanner) (StoredDocument, error) {
	var (
		doc      StoredDocument
		fileType string
		status   string
		pages    []byte
	)
	if err := row.Scan(
		&doc.ID,
		&doc.Owner,
		&doc.OriginalName,
		&fileType,
		&doc.StoragePath,
		&status,
		&pages,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return StoredDocument{}, err
	}

	st, err := ParseStatus(status)
	if err != nil {
		return StoredDocument{}, err
	}
	doc.Status = st
	doc.FileType = FileType(fileType)

	if len(pages) > 0 {
		if err := json.Unmarshal(pages, &doc.ExtractedText.Pages); err != nil {
			return StoredDocument{}, fmt.Errorf("decode extracted pages: %w", err)
		}
	}
	if doc.ExtractedText.Pages == nil {
		doc.ExtractedText.Pages = []Page{}
	}
	return doc, nil
}

func encodePages(pages []Page) (string, error) {
	if pages == nil {
		pages = []Page{}
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return "", fmt.Errorf("encode extracted pages: %w", err)
	}
	return string(b), nil
}

var _ Repo = (*PGRepo)(nil)
