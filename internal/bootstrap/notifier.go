package bootstrap

import (
	"context"
	"time"

	"pdfvault-backend/internal/documents"
	"pdfvault-backend/internal/queue"
)

// queueNotifier publishes a queue message for every stored document.
type queueNotifier struct {
	client queue.Publisher
	now    func() time.Time
}

func (n queueNotifier) DocumentStored(ctx context.Context, doc documents.StoredDocument) error {
	now := time.Now
	if n.now != nil {
		now = n.now
	}
	return n.client.Publish(ctx, queue.Message{
		DocumentID:  doc.ID,
		Owner:       doc.Owner,
		StoragePath: doc.StoragePath,
		Status:      string(doc.Status),
		Pages:       len(doc.ExtractedText.Pages),
		EnqueuedAt:  now().UTC().Format(time.RFC3339),
		Version:     queue.MessageVersion,
	})
}
