package documents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfvault-backend/internal/shared/storage/db"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Connect(ctx, "sqlite::memory:", db.DefaultMigrateOptions())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(ctx, conn, db.DialectSQLite))
	return NewSQLiteRepo(conn)
}

func TestSQLiteRepoRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	doc, err := NewStoredDocument("U1", "a.pdf", "file:///data/pdfs/a.pdf", PagesFromText([]string{"Hello", "World"}))
	require.NoError(t, err)

	created, err := repo.Create(ctx, doc)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByIDAndOwner(ctx, doc.ID, "U1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, StatusProcessed, got.Status)
	assert.Equal(t, FileTypePDF, got.FileType)
	assert.Equal(t, doc.ExtractedText.Pages, got.ExtractedText.Pages)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt), "%v vs %v", created.CreatedAt, got.CreatedAt)

	_, err = repo.GetByIDAndOwner(ctx, doc.ID, "U2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepoDuplicateID(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	doc, err := NewStoredDocument("U1", "a.pdf", "file:///a.pdf", nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, doc)
	require.NoError(t, err)

	_, err = repo.Create(ctx, doc)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestSQLiteRepoListNewestFirst(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	var ids []string
	for _, name := range []string{"1.pdf", "2.pdf", "3.pdf"} {
		doc, err := NewStoredDocument("U1", name, "file:///"+name, nil)
		require.NoError(t, err)
		_, err = repo.Create(ctx, doc)
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}
	other, err := NewStoredDocument("U2", "x.pdf", "file:///x.pdf", nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	docs, err := repo.ListByOwner(ctx, "U1", 2, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, ids[2], docs[0].ID)
	assert.Equal(t, ids[1], docs[1].ID)
	assert.Equal(t, StatusUploaded, docs[0].Status)
	assert.NotNil(t, docs[0].ExtractedText.Pages)

	docs, err = repo.ListByOwner(ctx, "U1", 2, 2)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ids[0], docs[0].ID)
}

func TestSQLiteRepoDelete(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	doc, err := NewStoredDocument("U1", "a.pdf", "file:///a.pdf", nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, doc)
	require.NoError(t, err)

	require.ErrorIs(t, repo.DeleteByIDAndOwner(ctx, doc.ID, "U2"), ErrNotFound)
	require.NoError(t, repo.DeleteByIDAndOwner(ctx, doc.ID, "U1"))
	require.ErrorIs(t, repo.DeleteByIDAndOwner(ctx, doc.ID, "U1"), ErrNotFound)
}

func TestMemoryRepoListPaging(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	var ids []string
	for i := 0; i < 3; i++ {
		doc, err := NewStoredDocument("U1", "f.pdf", "file:///f.pdf", nil)
		require.NoError(t, err)
		_, err = repo.Create(ctx, doc)
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}

	docs, err := repo.ListByOwner(ctx, "U1", 0, 0)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	// Equal timestamps fall back to insertion order, newest first.
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{docs[0].ID, docs[1].ID, docs[2].ID})

	docs, err = repo.ListByOwner(ctx, "U1", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)

	first, err := NewStoredDocument("U1", "dup.pdf", "file:///dup.pdf", nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, first)
	require.NoError(t, err)
	_, err = repo.Create(ctx, first)
	require.ErrorIs(t, err, ErrDuplicateID)
}
