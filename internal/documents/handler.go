package documents

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pdfvault-backend/internal/extract"
	"pdfvault-backend/internal/shared/server/middleware"
	"pdfvault-backend/internal/shared/server/respond"
)

const (
	DefaultMaxFileSizeBytes   = 10 << 20 // 10MB
	DefaultMaxFilesPerRequest = 10

	// room for multipart boundaries and part headers
	multipartOverhead = 1 << 20
)

// Handler wires HTTP handlers to the service. It is also the upstream gate
// for ingestion: declared type, size and file count are checked here.
type Handler struct {
	Svc              *Service
	MaxFileSizeBytes int64
	MaxFiles         int
}

// NewHandler constructs a Handler. Non-positive limits fall back to defaults.
func NewHandler(svc *Service, maxFileSizeBytes int64, maxFiles int) *Handler {
	if maxFileSizeBytes <= 0 {
		maxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFilesPerRequest
	}
	return &Handler{Svc: svc, MaxFileSizeBytes: maxFileSizeBytes, MaxFiles: maxFiles}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.ingest)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) ingest(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := h.MaxFileSizeBytes*int64(h.MaxFiles) + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", nil)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			respond.Error(c, http.StatusBadRequest, "no_files_provided", "no files provided", nil)
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart form", nil)
		}
		return
	}

	headers := append(append([]*multipart.FileHeader{}, form.File["files"]...), form.File["file"]...)
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "no_files_provided", "no files provided", nil)
		return
	}
	if len(headers) > h.MaxFiles {
		respond.Error(c, http.StatusBadRequest, "too_many_files", fmt.Sprintf("at most %d files per request", h.MaxFiles), gin.H{
			"maxFiles": h.MaxFiles,
		})
		return
	}

	for i, fh := range headers {
		if !extract.IsPDFType(fh.Header.Get("Content-Type"), fh.Filename) {
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "only PDF files are accepted", gin.H{
				"index":    i,
				"fileName": fh.Filename,
			})
			return
		}
		if fh.Size > h.MaxFileSizeBytes {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds maximum size", gin.H{
				"index":    i,
				"fileName": fh.Filename,
				"maxBytes": h.MaxFileSizeBytes,
			})
			return
		}
	}

	files := make([]UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", gin.H{"fileName": fh.Filename})
			return
		}
		files = append(files, UploadedFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := h.Svc.Ingest(c.Request.Context(), userID, files)
	if err != nil {
		h.ingestError(c, res, err)
		return
	}

	respond.Created(c, IngestResponse{
		Count:     res.Count,
		Documents: toResponses(res.Documents),
	})
}

func (h *Handler) ingestError(c *gin.Context, res IngestResult, err error) {
	if errors.Is(err, ErrNoFilesProvided) {
		respond.Error(c, http.StatusBadRequest, "no_files_provided", "no files provided", nil)
		return
	}
	if errors.Is(err, ErrInvalidInput) && !errors.Is(err, ErrPersistence) {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	var details any
	var fe *FileError
	if errors.As(err, &fe) {
		details = IngestFailureDetails{
			FailedIndex: fe.Index,
			FileName:    fe.FileName,
			Persisted:   toResponses(res.Documents),
		}
	}

	switch {
	case errors.Is(err, ErrExtraction):
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_error", "unable to extract text from PDF", details)
	case errors.Is(err, ErrUpload):
		respond.Error(c, http.StatusBadGateway, "upload_error", "failed to store file", details)
	case errors.Is(err, ErrPersistence):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to save document", details)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to ingest documents", details)
	}
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	doc, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}

	respond.OK(c, toResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}

	respond.NoContent(c)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		}
		return
	}

	respond.OK(c, ListResponse{Documents: toResponses(docs), Limit: limit, Offset: offset})
}
