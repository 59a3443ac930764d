package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pdfvault-backend/internal/bootstrap"
	"pdfvault-backend/internal/documents"
	"pdfvault-backend/internal/extract/extracttest"
	"pdfvault-backend/internal/shared/auth"
	"pdfvault-backend/internal/shared/config"
)

const testSigningKey = "documents-handler-secret"

type testFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.LocalStoreDir = t.TempDir()
	cfg.SigningKey = testSigningKey
	cfg.RateLimitRPS = 0
	if mutate != nil {
		mutate(&cfg)
	}

	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	j, err := auth.NewJWT(testSigningKey)
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}
	token, err := j.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return "Bearer " + token
}

func pdfPart(name string, pages ...string) testFile {
	return testFile{
		field:       "files",
		name:        name,
		contentType: "application/pdf",
		data:        extracttest.BuildPDF(extracttest.Pages(pages...)...),
	}
}

func multipartRequest(t *testing.T, subject string, files ...testFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if subject != "" {
		req.Header.Set("Authorization", bearer(t, subject))
	}
	return req
}

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestIngestAndReadBack(t *testing.T) {
	app := newTestApp(t, nil)
	router := app.Router

	req := multipartRequest(t, "U1", pdfPart("A.pdf", "Hello", "World"), pdfPart("B.pdf", "Solo"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created documents.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode ingest response: %v", err)
	}
	if created.Count != 2 || len(created.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %+v", created)
	}
	a := created.Documents[0]
	if a.OriginalName != "A.pdf" || a.Status != "processed" || a.Owner != "U1" {
		t.Fatalf("unexpected first document: %+v", a)
	}
	if len(a.ExtractedText.Pages) != 2 || a.ExtractedText.Pages[0].Content != "Hello" || a.ExtractedText.Pages[1].Content != "World" {
		t.Fatalf("unexpected pages: %+v", a.ExtractedText.Pages)
	}
	if created.Documents[1].ExtractedText.Pages[0].Content != "Solo" {
		t.Fatalf("unexpected second document pages: %+v", created.Documents[1].ExtractedText.Pages)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+a.ID, nil)
	getReq.Header.Set("Authorization", bearer(t, "U1"))
	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, getReq)
	if getResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.Code)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=500", nil)
	listReq.Header.Set("Authorization", bearer(t, "U1"))
	listResp := httptest.NewRecorder()
	router.ServeHTTP(listResp, listReq)
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.Code)
	}
	var listed documents.ListResponse
	if err := json.NewDecoder(listResp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Documents) != 2 || listed.Limit != 50 {
		t.Fatalf("unexpected list response: %d docs, limit %d", len(listed.Documents), listed.Limit)
	}
}

func TestOtherOwnerGets404(t *testing.T) {
	app := newTestApp(t, nil)
	router := app.Router

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartRequest(t, "U1", pdfPart("mine.pdf", "secret")))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created documents.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Documents[0].ID

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/v1/documents/"+id, nil)
		req.Header.Set("Authorization", bearer(t, "U2"))
		r := httptest.NewRecorder()
		router.ServeHTTP(r, req)
		if r.Code != http.StatusNotFound {
			t.Fatalf("%s as U2: expected 404, got %d", method, r.Code)
		}
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+id, nil)
	del.Header.Set("Authorization", bearer(t, "U1"))
	delResp := httptest.NewRecorder()
	router.ServeHTTP(delResp, del)
	if delResp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", delResp.Code)
	}
}

func TestIngestGate(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.MaxFileSizeBytes = 64 << 10
		cfg.MaxFilesPerRequest = 2
	})
	router := app.Router

	cases := []struct {
		name   string
		files  []testFile
		status int
		code   string
	}{
		{
			name:   "no files",
			files:  nil,
			status: http.StatusBadRequest,
			code:   "no_files_provided",
		},
		{
			name:   "wrong type",
			files:  []testFile{{field: "files", name: "notes.txt", contentType: "text/plain", data: []byte("hello")}},
			status: http.StatusUnsupportedMediaType,
			code:   "unsupported_media_type",
		},
		{
			name:   "too large",
			files:  []testFile{{field: "files", name: "big.pdf", contentType: "application/pdf", data: bytes.Repeat([]byte("x"), 65<<10)}},
			status: http.StatusRequestEntityTooLarge,
			code:   "file_too_large",
		},
		{
			name:   "too many",
			files:  []testFile{pdfPart("1.pdf", "a"), pdfPart("2.pdf", "b"), pdfPart("3.pdf", "c")},
			status: http.StatusBadRequest,
			code:   "too_many_files",
		},
		{
			name:   "invalid pdf",
			files:  []testFile{{field: "file", name: "broken.pdf", contentType: "application/pdf", data: []byte("not really a pdf")}},
			status: http.StatusUnprocessableEntity,
			code:   "extraction_error",
		},
	}

	for _, tc := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, multipartRequest(t, "U1", tc.files...))
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, resp.Code, resp.Body.String())
		}
		if body := decodeError(t, resp); body.Error.Code != tc.code {
			t.Fatalf("%s: expected code %s, got %s", tc.name, tc.code, body.Error.Code)
		}
	}
}

func TestIngestFailureReportsPersisted(t *testing.T) {
	app := newTestApp(t, nil)
	router := app.Router

	broken := testFile{field: "files", name: "broken.pdf", contentType: "application/pdf", data: []byte("garbage bytes")}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartRequest(t, "U1", pdfPart("ok.pdf", "fine"), broken))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}

	body := decodeError(t, resp)
	var details documents.IngestFailureDetails
	if err := json.Unmarshal(body.Error.Details, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details.FailedIndex != 1 || details.FileName != "broken.pdf" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if len(details.Persisted) != 1 || details.Persisted[0].OriginalName != "ok.pdf" {
		t.Fatalf("expected first file persisted, got %+v", details.Persisted)
	}
}

func TestDocumentsRequireAuth(t *testing.T) {
	app := newTestApp(t, nil)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, multipartRequest(t, "", pdfPart("a.pdf", "x")))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestHealthAndMe(t *testing.T) {
	app := newTestApp(t, nil)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", bearer(t, "U7"))
	me := httptest.NewRecorder()
	app.Router.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", me.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(me.Body).Decode(&payload); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if payload["userId"] != "U7" {
		t.Fatalf("unexpected me payload: %v", payload)
	}
}
