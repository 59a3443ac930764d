package documents

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfvault-backend/internal/extract"
	"pdfvault-backend/internal/shared/metrics"
	"pdfvault-backend/internal/shared/storage/object"
	"pdfvault-backend/internal/shared/telemetry"
	"pdfvault-backend/internal/shared/util"
)

// DefaultFolder is the namespace root for uploaded files.
const DefaultFolder = "pdfs"

// PageExtractor produces raw per-page text from PDF bytes.
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// UploadedFile is one file of an ingestion call. Type and size have already
// been checked by the caller.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// IngestResult lists the documents created by an ingestion call in
// submission order. On failure it holds the documents persisted before the
// failing file.
type IngestResult struct {
	Documents []StoredDocument
	Count     int
}

// Notifier is told about every stored document. It is optional and its
// errors never fail an ingestion call.
type Notifier interface {
	DocumentStored(ctx context.Context, doc StoredDocument) error
}

// Service contains business logic for documents.
type Service struct {
	Extractor PageExtractor
	Store     object.Uploader
	Repo      Repo
	Notifier  Notifier
	// Folder is the namespace root; each owner gets a hashed sub-folder.
	Folder string
	// Normalize cleans each page's raw text. Defaults to extract.Normalize.
	Normalize func(string) string
}

// Ingest processes files one at a time: extract, normalize, upload, persist.
// The first failing file stops the call; files before it stay persisted.
func (s *Service) Ingest(ctx context.Context, owner string, files []UploadedFile) (IngestResult, error) {
	if strings.TrimSpace(owner) == "" {
		return IngestResult{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if len(files) == 0 {
		return IngestResult{}, ErrNoFilesProvided
	}
	metrics.IncIngestRequests()

	result := IngestResult{Documents: make([]StoredDocument, 0, len(files))}
	namespace := s.namespace(owner)

	for i, f := range files {
		start := time.Now()
		doc, stage, err := s.ingestOne(ctx, owner, namespace, f)
		metrics.ObserveIngestFileDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
		if err != nil {
			metrics.IncIngestFailed(stage)
			telemetry.Error("ingest.file.failed", map[string]any{
				"owner":       owner,
				"file_index":  i,
				"file_name":   f.Name,
				"stage":       stage,
				"error":       err,
				"persisted":   result.Count,
				"total_files": len(files),
			})
			return result, &FileError{Index: i, FileName: f.Name, Kind: kindForStage(stage), Err: err}
		}

		metrics.IncIngestFiles(len(doc.ExtractedText.Pages))
		telemetry.Info("ingest.file.ok", map[string]any{
			"owner":       owner,
			"file_index":  i,
			"document_id": doc.ID,
			"pages":       len(doc.ExtractedText.Pages),
			"status":      string(doc.Status),
		})
		s.notify(ctx, doc)
		result.Documents = append(result.Documents, doc)
		result.Count++
	}
	return result, nil
}

func (s *Service) notify(ctx context.Context, doc StoredDocument) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.DocumentStored(ctx, doc); err != nil {
		telemetry.Warn("ingest.notify.failed", map[string]any{
			"document_id": doc.ID,
			"error":       err,
		})
	}
}

func (s *Service) ingestOne(ctx context.Context, owner, namespace string, f UploadedFile) (StoredDocument, string, error) {
	raw, err := s.Extractor.ExtractPages(ctx, f.Data)
	if err != nil {
		return StoredDocument{}, metrics.StageExtraction, err
	}

	normalize := s.Normalize
	if normalize == nil {
		normalize = extract.Normalize
	}
	for i := range raw {
		raw[i] = normalize(raw[i])
	}

	url, err := s.Store.Upload(ctx, f.Data, namespace)
	if err != nil {
		return StoredDocument{}, metrics.StageUpload, err
	}

	doc, err := NewStoredDocument(owner, f.Name, url, PagesFromText(raw))
	if err != nil {
		s.discard(ctx, url)
		return StoredDocument{}, metrics.StagePersistence, err
	}
	created, err := s.Repo.Create(ctx, doc)
	if err != nil {
		s.discard(ctx, url)
		return StoredDocument{}, metrics.StagePersistence, err
	}
	return created, "", nil
}

// discard removes an uploaded object whose record could not be created.
// Failure here is only logged: no record references the object either way.
func (s *Service) discard(ctx context.Context, url string) {
	remover, ok := s.Store.(object.Remover)
	if !ok {
		return
	}
	if err := remover.Remove(context.WithoutCancel(ctx), url); err != nil {
		telemetry.Warn("ingest.discard.failed", map[string]any{
			"storage_path": url,
			"error":        err,
		})
	}
}

func (s *Service) namespace(owner string) string {
	folder := s.Folder
	if strings.TrimSpace(folder) == "" {
		folder = DefaultFolder
	}
	return path.Join(util.SanitizeNamespace(folder), util.HashUserKey(owner))
}

func kindForStage(stage string) error {
	switch stage {
	case metrics.StageExtraction:
		return ErrExtraction
	case metrics.StageUpload:
		return ErrUpload
	default:
		return ErrPersistence
	}
}

// Get returns a document by id for an owner.
func (s *Service) Get(ctx context.Context, owner, id string) (StoredDocument, error) {
	if !validID(id) || owner == "" {
		return StoredDocument{}, ErrNotFound
	}
	return s.Repo.GetByIDAndOwner(ctx, id, owner)
}

// List returns an owner's documents, newest first.
func (s *Service) List(ctx context.Context, owner string, limit, offset int) ([]StoredDocument, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	return s.Repo.ListByOwner(ctx, owner, limit, offset)
}

// Delete removes an owner's document record. The stored file is kept.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if !validID(id) || owner == "" {
		return ErrNotFound
	}
	return s.Repo.DeleteByIDAndOwner(ctx, id, owner)
}

func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
