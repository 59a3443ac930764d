package object

import (
	"context"
	"path"

	"github.com/google/uuid"

	"pdfvault-backend/internal/shared/util"
)

const (
	// ContentTypePDF is the content type every stored document is written with.
	ContentTypePDF = "application/pdf"
	extPDF         = ".pdf"
)

// Uploader writes a file buffer to durable storage and returns a URL that
// resolves to the stored copy. Every call creates a new object; identical
// content uploaded twice yields two URLs.
type Uploader interface {
	Upload(ctx context.Context, data []byte, namespace string) (url string, err error)
}

// Remover deletes a previously uploaded object by the URL Upload returned.
// Stores that cannot delete simply do not implement it.
type Remover interface {
	Remove(ctx context.Context, url string) error
}

// NewKey returns a fresh object key under namespace.
func NewKey(namespace string) string {
	name := uuid.NewString() + extPDF
	ns := util.SanitizeNamespace(namespace)
	if ns == "" {
		return name
	}
	return path.Join(ns, name)
}
