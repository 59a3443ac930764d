package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            string        `json:"id"`
	Owner         string        `json:"owner"`
	OriginalName  string        `json:"originalName"`
	FileType      string        `json:"fileType"`
	StoragePath   string        `json:"storagePath"`
	Status        string        `json:"status"`
	ExtractedText ExtractedText `json:"extractedText"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IngestResponse is returned by a successful ingestion call.
type IngestResponse struct {
	Count     int                `json:"count"`
	Documents []DocumentResponse `json:"documents"`
}

// IngestFailureDetails is attached to the error body of a failed ingestion.
type IngestFailureDetails struct {
	FailedIndex int                `json:"failedIndex"`
	FileName    string             `json:"fileName"`
	Persisted   []DocumentResponse `json:"persisted"`
}

// ListResponse is returned by the list endpoint.
type ListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

func toResponse(doc StoredDocument) DocumentResponse {
	pages := doc.ExtractedText.Pages
	if pages == nil {
		pages = []Page{}
	}
	return DocumentResponse{
		ID:            doc.ID,
		Owner:         doc.Owner,
		OriginalName:  doc.OriginalName,
		FileType:      string(doc.FileType),
		StoragePath:   doc.StoragePath,
		Status:        string(doc.Status),
		ExtractedText: ExtractedText{Pages: pages},
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func toResponses(docs []StoredDocument) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	return out
}
