package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	doc StoredDocument
	seq int64
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]memoryEntry // id -> document
	seq  int64
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]memoryEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new document; ids must be unique.
func (r *MemoryRepo) Create(ctx context.Context, doc StoredDocument) (StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return StoredDocument{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[doc.ID]; exists {
		return StoredDocument{}, ErrDuplicateID
	}
	now := r.now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	r.seq++
	r.data[doc.ID] = memoryEntry{doc: cloneDoc(doc), seq: r.seq}
	return doc, nil
}

// GetByIDAndOwner returns a document by id for an owner.
func (r *MemoryRepo) GetByIDAndOwner(ctx context.Context, id, owner string) (StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return StoredDocument{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.data[id]
	if !ok || e.doc.Owner != owner {
		return StoredDocument{}, ErrNotFound
	}
	return cloneDoc(e.doc), nil
}

// ListByOwner returns documents for an owner, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	entries := make([]memoryEntry, 0)
	for _, e := range r.data {
		if e.doc.Owner == owner {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].doc.CreatedAt.Equal(entries[j].doc.CreatedAt) {
			return entries[i].doc.CreatedAt.After(entries[j].doc.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	if offset >= len(entries) {
		return []StoredDocument{}, nil
	}
	end := len(entries)
	if offset+limit < end {
		end = offset + limit
	}

	out := make([]StoredDocument, 0, end-offset)
	for _, e := range entries[offset:end] {
		out = append(out, cloneDoc(e.doc))
	}
	return out, nil
}

// DeleteByIDAndOwner removes a document owned by owner.
func (r *MemoryRepo) DeleteByIDAndOwner(ctx context.Context, id, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok || e.doc.Owner != owner {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func cloneDoc(doc StoredDocument) StoredDocument {
	pages := make([]Page, len(doc.ExtractedText.Pages))
	copy(pages, doc.ExtractedText.Pages)
	doc.ExtractedText.Pages = pages
	return doc
}

var _ Repo = (*MemoryRepo)(nil)
