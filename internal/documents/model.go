package documents

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a stored document.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusProcessed Status = "processed"
)

// ParseStatus validates a status read back from storage.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusUploaded, StatusProcessed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

// FileType discriminates stored file formats.
type FileType string

const FileTypePDF FileType = "pdf"

// Page is the normalized text of one physical page, numbered from 1.
type Page struct {
	Page    int    `json:"page"`
	Content string `json:"content"`
}

// ExtractedText holds the per-page text of a document in page order.
type ExtractedText struct {
	Pages []Page `json:"pages"`
}

// StoredDocument is an ingested file owned by exactly one subject.
type StoredDocument struct {
	ID            string
	Owner         string
	OriginalName  string
	FileType      FileType
	StoragePath   string
	Status        Status
	ExtractedText ExtractedText
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewStoredDocument assembles a record for a file whose upload and
// extraction both succeeded. Status is processed when at least one page was
// extracted and uploaded otherwise.
func NewStoredDocument(owner, originalName, storagePath string, pages []Page) (StoredDocument, error) {
	if strings.TrimSpace(owner) == "" {
		return StoredDocument{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	u, err := url.Parse(storagePath)
	if err != nil || !u.IsAbs() {
		return StoredDocument{}, fmt.Errorf("%w: storage path must be an absolute url", ErrInvalidInput)
	}
	if err := validatePages(pages); err != nil {
		return StoredDocument{}, err
	}

	status := StatusUploaded
	if len(pages) > 0 {
		status = StatusProcessed
	}
	copied := make([]Page, len(pages))
	copy(copied, pages)

	return StoredDocument{
		ID:            uuid.NewString(),
		Owner:         owner,
		OriginalName:  originalName,
		FileType:      FileTypePDF,
		StoragePath:   storagePath,
		Status:        status,
		ExtractedText: ExtractedText{Pages: copied},
	}, nil
}

// PagesFromText numbers raw page strings 1..N.
func PagesFromText(texts []string) []Page {
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = Page{Page: i + 1, Content: t}
	}
	return pages
}

func validatePages(pages []Page) error {
	for i, p := range pages {
		if p.Page != i+1 {
			return fmt.Errorf("%w: page %d numbered %d", ErrInvalidInput, i+1, p.Page)
		}
	}
	return nil
}
