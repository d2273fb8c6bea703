package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"edu-ai-assistant/internal/ai"
	"edu-ai-assistant/internal/config"
	"edu-ai-assistant/models"
	"edu-ai-assistant/services"
)

type fakeFileBinder struct {
	mu        sync.Mutex
	saveCalls int
	saved     *models.StoredFile
	saveErr   error
	file      *models.StoredFile
	getErr    error
}

func (f *fakeFileBinder) Save(ctx context.Context, chatID, filename string, r io.Reader) (*models.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	size, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, err
	}
	f.saved = &models.StoredFile{ChatID: chatID, Filename: filename, Path: "/tmp/" + chatID + ".pdf", Size: size}
	return f.saved, nil
}

func (f *fakeFileBinder) Get(ctx context.Context, chatID string) (*models.StoredFile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.file, nil
}

type fakeIndexer struct {
	mu       sync.Mutex
	calls    int
	lastPath string
	lastName string
	chunks   int
	err      error
}

func (f *fakeIndexer) Index(ctx context.Context, path, fileName string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPath = path
	f.lastName = fileName
	if f.err != nil {
		return 0, f.err
	}
	return f.chunks, nil
}

func newPdfRouter(chat ChatStreamer, files FileBinder, indexer Indexer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cfg := &config.Config{MaxFileSize: 10 << 20}
	SetupPdfRoutes(router, cfg, chat, files, indexer)
	return router
}

// multipartUpload builds a multipart body with a single "file" part carrying
// the given content type.
func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func uploadResult(t *testing.T, w *httptest.ResponseRecorder) models.UploadResult {
	t.Helper()
	var result models.UploadResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid json body %q: %v", w.Body.String(), err)
	}
	return result
}

func TestUploadAcceptsPdf(t *testing.T) {
	files := &fakeFileBinder{}
	indexer := &fakeIndexer{chunks: 3}
	router := newPdfRouter(&fakeChat{}, files, indexer)

	body, contentType := multipartUpload(t, "manual.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ai/pdf/upload/chat42", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if result := uploadResult(t, w.ResponseRecorder); !result.OK {
		t.Fatalf("upload rejected: %s", result.Message)
	}
	if files.saveCalls != 1 {
		t.Errorf("save calls = %d, want 1", files.saveCalls)
	}
	if files.saved.ChatID != "chat42" || files.saved.Filename != "manual.pdf" {
		t.Errorf("saved = %+v", files.saved)
	}
	if indexer.calls != 1 || indexer.lastName != "manual.pdf" {
		t.Errorf("indexer calls = %d, name = %q", indexer.calls, indexer.lastName)
	}
	if indexer.lastPath != files.saved.Path {
		t.Errorf("indexed path = %q, want %q", indexer.lastPath, files.saved.Path)
	}
}

func TestUploadRejectsNonPdfBeforeSaving(t *testing.T) {
	files := &fakeFileBinder{}
	indexer := &fakeIndexer{}
	router := newPdfRouter(&fakeChat{}, files, indexer)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", []byte("plain text"))
	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ai/pdf/upload/chat42", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if result := uploadResult(t, w.ResponseRecorder); result.OK {
		t.Fatal("non-pdf upload was accepted")
	}
	if files.saveCalls != 0 {
		t.Errorf("save was called %d times for a rejected upload", files.saveCalls)
	}
	if indexer.calls != 0 {
		t.Errorf("indexer was called %d times for a rejected upload", indexer.calls)
	}
}

func TestUploadRequiresFilePart(t *testing.T) {
	files := &fakeFileBinder{}
	router := newPdfRouter(&fakeChat{}, files, &fakeIndexer{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ai/pdf/upload/chat42", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if result := uploadResult(t, w.ResponseRecorder); result.OK {
		t.Fatal("upload without file part was accepted")
	}
	if files.saveCalls != 0 {
		t.Errorf("save calls = %d, want 0", files.saveCalls)
	}
}

func TestUploadReportsIndexingFailure(t *testing.T) {
	files := &fakeFileBinder{}
	indexer := &fakeIndexer{err: io.ErrUnexpectedEOF}
	router := newPdfRouter(&fakeChat{}, files, indexer)

	body, contentType := multipartUpload(t, "manual.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ai/pdf/upload/chat42", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if result := uploadResult(t, w.ResponseRecorder); result.OK {
		t.Fatal("upload reported ok despite indexing failure")
	}
	if files.saveCalls != 1 {
		t.Errorf("save calls = %d, want 1", files.saveCalls)
	}
}

func TestPdfChatWithoutBoundFileReturns404(t *testing.T) {
	chat := &fakeChat{err: services.ErrNoFileBound}
	router := newPdfRouter(chat, &fakeFileBinder{}, &fakeIndexer{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/pdf/chat?prompt=hi&chatId=nofile", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestPdfChatStreamsBody(t *testing.T) {
	chat := &fakeChat{fragments: []ai.Fragment{{Text: "from "}, {Text: "the doc"}}}
	router := newPdfRouter(chat, &fakeFileBinder{}, &fakeIndexer{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/pdf/chat?prompt=hi&chatId=abc", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "from the doc" {
		t.Errorf("body = %q", w.Body.String())
	}
	if chat.pdfCalls != 1 {
		t.Errorf("pdf chat calls = %d, want 1", chat.pdfCalls)
	}
}

func TestDownloadReturnsAttachment(t *testing.T) {
	content := []byte("%PDF-1.4 stored bytes")
	path := filepath.Join(t.TempDir(), "chat42.pdf")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	files := &fakeFileBinder{file: &models.StoredFile{
		ChatID:   "chat42",
		Filename: "课程手册.pdf",
		Path:     path,
		Size:     int64(len(content)),
	}}
	router := newPdfRouter(&fakeChat{}, files, &fakeIndexer{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/pdf/file/chat42", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Error("response body does not match stored bytes")
	}
	disposition := w.Header().Get("Content-Disposition")
	want := `attachment; filename="%E8%AF%BE%E7%A8%8B%E6%89%8B%E5%86%8C.pdf"`
	if disposition != want {
		t.Errorf("Content-Disposition = %q, want %q", disposition, want)
	}
	if got := w.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("content type = %q", got)
	}
}

func TestDownloadMissingFileReturns404(t *testing.T) {
	files := &fakeFileBinder{getErr: services.ErrFileNotFound}
	router := newPdfRouter(&fakeChat{}, files, &fakeIndexer{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/pdf/file/unknown", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
