package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfvault-backend/internal/extract"
	"pdfvault-backend/internal/extract/extracttest"
)

type fakeUploader struct {
	mu         sync.Mutex
	failOnCall int // 1-based; 0 never fails
	calls      int
	uploads    []string
	namespaces []string
	removed    []string
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, namespace string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOnCall == f.calls {
		return "", errors.New("bucket unavailable")
	}
	url := fmt.Sprintf("https://store.test/%s/%d.pdf", namespace, f.calls)
	f.uploads = append(f.uploads, url)
	f.namespaces = append(f.namespaces, namespace)
	return url, nil
}

func (f *fakeUploader) Remove(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, url)
	return nil
}

type failingCreateRepo struct {
	*MemoryRepo
	failOnCall int
	calls      int
}

func (r *failingCreateRepo) Create(ctx context.Context, doc StoredDocument) (StoredDocument, error) {
	r.calls++
	if r.calls == r.failOnCall {
		return StoredDocument{}, errors.New("connection reset")
	}
	return r.MemoryRepo.Create(ctx, doc)
}

func newTestService(t *testing.T, store *fakeUploader, repo Repo) *Service {
	t.Helper()
	ex, err := extract.NewForBackend(extract.BackendLedongthuc)
	require.NoError(t, err)
	return &Service{Extractor: ex, Store: store, Repo: repo}
}

func pdfFile(name string, pages ...string) UploadedFile {
	return UploadedFile{
		Name:        name,
		ContentType: "application/pdf",
		Data:        extracttest.BuildPDF(extracttest.Pages(pages...)...),
	}
}

func TestIngestTwoFiles(t *testing.T) {
	store := &fakeUploader{}
	repo := NewMemoryRepo()
	svc := newTestService(t, store, repo)

	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{
		pdfFile("A.pdf", "Hello", "World"),
		pdfFile("B.pdf", "Solo"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.Len(t, res.Documents, 2)

	a, b := res.Documents[0], res.Documents[1]
	assert.Equal(t, "A.pdf", a.OriginalName)
	assert.Equal(t, []Page{{Page: 1, Content: "Hello"}, {Page: 2, Content: "World"}}, a.ExtractedText.Pages)
	assert.Equal(t, StatusProcessed, a.Status)
	assert.Equal(t, "B.pdf", b.OriginalName)
	assert.Equal(t, []Page{{Page: 1, Content: "Solo"}}, b.ExtractedText.Pages)
	assert.Equal(t, StatusProcessed, b.Status)

	for _, doc := range res.Documents {
		assert.Equal(t, "U1", doc.Owner)
		assert.Equal(t, FileTypePDF, doc.FileType)
		assert.True(t, validID(doc.ID), "id %q", doc.ID)
		assert.False(t, doc.CreatedAt.IsZero())
	}
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.StoragePath, b.StoragePath)
	assert.Equal(t, store.uploads, []string{a.StoragePath, b.StoragePath})

	listed, err := svc.List(context.Background(), "U1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestIngestUsesHashedOwnerNamespace(t *testing.T) {
	store := &fakeUploader{}
	svc := newTestService(t, store, NewMemoryRepo())
	svc.Folder = "contracts"

	_, err := svc.Ingest(context.Background(), "owner@example.com", []UploadedFile{pdfFile("a.pdf", "x")})
	require.NoError(t, err)
	require.Len(t, store.namespaces, 1)

	ns := store.namespaces[0]
	assert.True(t, strings.HasPrefix(ns, "contracts/"), ns)
	assert.NotContains(t, ns, "owner@example.com")
}

func TestIngestNoFiles(t *testing.T) {
	store := &fakeUploader{}
	repo := NewMemoryRepo()
	svc := newTestService(t, store, repo)

	res, err := svc.Ingest(context.Background(), "U1", nil)
	require.ErrorIs(t, err, ErrNoFilesProvided)
	assert.Zero(t, res.Count)
	assert.Zero(t, store.calls)

	listed, err := repo.ListByOwner(context.Background(), "U1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestIngestRequiresOwner(t *testing.T) {
	svc := newTestService(t, &fakeUploader{}, NewMemoryRepo())
	_, err := svc.Ingest(context.Background(), " ", []UploadedFile{pdfFile("a.pdf", "x")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIngestInvalidPDFStopsBeforeUpload(t *testing.T) {
	store := &fakeUploader{}
	repo := NewMemoryRepo()
	svc := newTestService(t, store, repo)

	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{
		{Name: "fake.pdf", ContentType: "application/pdf", Data: []byte("definitely not a pdf document")},
	})
	require.ErrorIs(t, err, ErrExtraction)
	assert.Zero(t, res.Count)
	assert.Zero(t, store.calls, "upload must not be attempted")

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 0, fe.Index)
	assert.Equal(t, "fake.pdf", fe.FileName)
}

func TestIngestUploadFailureKeepsEarlierFiles(t *testing.T) {
	store := &fakeUploader{failOnCall: 2}
	repo := NewMemoryRepo()
	svc := newTestService(t, store, repo)

	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{
		pdfFile("one.pdf", "first"),
		pdfFile("two.pdf", "second"),
		pdfFile("three.pdf", "third"),
	})
	require.ErrorIs(t, err, ErrUpload)
	assert.NotErrorIs(t, err, ErrPersistence)

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Index)
	assert.Equal(t, "two.pdf", fe.FileName)

	require.Equal(t, 1, res.Count)
	assert.Equal(t, "one.pdf", res.Documents[0].OriginalName)
	assert.Equal(t, 2, store.calls, "third file must not be attempted")

	listed, err := repo.ListByOwner(context.Background(), "U1", 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "one.pdf", listed[0].OriginalName)
}

func TestIngestPersistenceFailureRemovesUpload(t *testing.T) {
	store := &fakeUploader{}
	repo := &failingCreateRepo{MemoryRepo: NewMemoryRepo(), failOnCall: 1}
	svc := newTestService(t, store, repo)

	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{pdfFile("a.pdf", "x")})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Zero(t, res.Count)
	require.Len(t, store.uploads, 1)
	assert.Equal(t, store.uploads, store.removed)
}

func TestIngestCustomNormalizer(t *testing.T) {
	svc := newTestService(t, &fakeUploader{}, NewMemoryRepo())
	svc.Normalize = strings.ToUpper

	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{pdfFile("a.pdf", "quiet")})
	require.NoError(t, err)
	assert.Equal(t, "QUIET", res.Documents[0].ExtractedText.Pages[0].Content)
}

func TestGetIsOwnerScoped(t *testing.T) {
	svc := newTestService(t, &fakeUploader{}, NewMemoryRepo())
	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{pdfFile("a.pdf", "mine")})
	require.NoError(t, err)
	id := res.Documents[0].ID

	got, err := svc.Get(context.Background(), "U1", id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = svc.Get(context.Background(), "U2", id)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "U1", "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsOwnerScoped(t *testing.T) {
	svc := newTestService(t, &fakeUploader{}, NewMemoryRepo())
	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{pdfFile("a.pdf", "mine")})
	require.NoError(t, err)
	id := res.Documents[0].ID

	require.ErrorIs(t, svc.Delete(context.Background(), "U2", id), ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), "U1", id))
	require.ErrorIs(t, svc.Delete(context.Background(), "U1", id), ErrNotFound)

	_, err = svc.Get(context.Background(), "U1", id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewStoredDocument(t *testing.T) {
	doc, err := NewStoredDocument("U1", "a.pdf", "https://store.test/a.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, doc.Status)

	doc, err = NewStoredDocument("U1", "a.pdf", "https://store.test/a.pdf", PagesFromText([]string{"p1", ""}))
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, doc.Status)
	assert.Len(t, doc.ExtractedText.Pages, 2)

	_, err = NewStoredDocument("", "a.pdf", "https://store.test/a.pdf", nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewStoredDocument("U1", "a.pdf", "relative/path.pdf", nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewStoredDocument("U1", "a.pdf", "https://store.test/a.pdf", []Page{{Page: 2, Content: "x"}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFileErrorUnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := error(&FileError{Index: 3, FileName: "x.pdf", Kind: ErrUpload, Err: cause})
	assert.ErrorIs(t, err, ErrUpload)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "x.pdf")
}

type recordingNotifier struct {
	ids []string
	err error
}

func (n *recordingNotifier) DocumentStored(ctx context.Context, doc StoredDocument) error {
	n.ids = append(n.ids, doc.ID)
	return n.err
}

func TestIngestNotifiesStoredDocuments(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("queue down")}
	svc := newTestService(t, &fakeUploader{}, NewMemoryRepo())
	svc.Notifier = notifier

	res, err := svc.Ingest(context.Background(), "U1", []UploadedFile{pdfFile("a.pdf", "x"), pdfFile("b.pdf", "y")})
	require.NoError(t, err, "notifier errors must not fail ingestion")
	require.Equal(t, 2, res.Count)
	assert.Equal(t, []string{res.Documents[0].ID, res.Documents[1].ID}, notifier.ids)
}
