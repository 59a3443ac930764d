package documents

import "context"

// Repo defines persistence operations for documents. Every lookup by id is
// scoped to an owner; a record owned by someone else is ErrNotFound.
type Repo interface {
	// Create persists doc and returns it with the store-assigned timestamps.
	Create(ctx context.Context, doc StoredDocument) (StoredDocument, error)
	GetByIDAndOwner(ctx context.Context, id, owner string) (StoredDocument, error)
	// ListByOwner returns documents newest first.
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]StoredDocument, error)
	DeleteByIDAndOwner(ctx context.Context, id, owner string) error
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
