package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"edu-ai-assistant/internal/ai"
)

type fakeChat struct {
	mu         sync.Mutex
	fragments  []ai.Fragment
	err        error
	lastPrompt string
	lastChatID string
	pdfCalls   int
}

func (f *fakeChat) stream(prompt, chatID string) (<-chan ai.Fragment, error) {
	f.mu.Lock()
	f.lastPrompt = prompt
	f.lastChatID = chatID
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	out := make(chan ai.Fragment, len(f.fragments))
	for _, fragment := range f.fragments {
		out <- fragment
	}
	close(out)
	return out, nil
}

func (f *fakeChat) StreamServiceChat(ctx context.Context, prompt, chatID string) (<-chan ai.Fragment, error) {
	return f.stream(prompt, chatID)
}

func (f *fakeChat) StreamPDFChat(ctx context.Context, prompt, chatID string) (<-chan ai.Fragment, error) {
	f.mu.Lock()
	f.pdfCalls++
	f.mu.Unlock()
	return f.stream(prompt, chatID)
}

type fakeLister struct {
	ids []string
	err error
}

func (f *fakeLister) ChatIDs(ctx context.Context, channel string) ([]string, error) {
	return f.ids, f.err
}

// streamRecorder adds the http.CloseNotifier method gin's Stream requires,
// which httptest.ResponseRecorder does not implement.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func newChatRouter(chat ChatStreamer, conversations ChannelLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupChatRoutes(router, chat, conversations)
	return router
}

func TestServiceChatStreamsBody(t *testing.T) {
	chat := &fakeChat{fragments: []ai.Fragment{{Text: "Hello"}, {Text: ", "}, {Text: "world"}}}
	router := newChatRouter(chat, &fakeLister{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/service?prompt=hi&chatId=abc", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", got)
	}
	if w.Body.String() != "Hello, world" {
		t.Errorf("body = %q, want %q", w.Body.String(), "Hello, world")
	}
	if chat.lastPrompt != "hi" || chat.lastChatID != "abc" {
		t.Errorf("params = %q, %q", chat.lastPrompt, chat.lastChatID)
	}
}

func TestServiceChatAcceptsFormParams(t *testing.T) {
	chat := &fakeChat{fragments: []ai.Fragment{{Text: "ok"}}}
	router := newChatRouter(chat, &fakeLister{})

	form := url.Values{"prompt": {"from form"}, "chatId": {"c42"}}
	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ai/service", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if chat.lastPrompt != "from form" || chat.lastChatID != "c42" {
		t.Errorf("params = %q, %q", chat.lastPrompt, chat.lastChatID)
	}
}

func TestServiceChatRejectsMissingParams(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing prompt", "/ai/service?chatId=abc"},
		{"missing chatId", "/ai/service?prompt=hi"},
		{"missing both", "/ai/service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newChatRouter(&fakeChat{}, &fakeLister{})
			w := newStreamRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestServiceChatTruncatesOnUpstreamError(t *testing.T) {
	chat := &fakeChat{fragments: []ai.Fragment{
		{Text: "partial "},
		{Err: context.DeadlineExceeded},
		{Text: "never sent"},
	}}
	router := newChatRouter(chat, &fakeLister{})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/service?prompt=hi&chatId=abc", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "partial " {
		t.Errorf("body = %q, want only pre-error output", w.Body.String())
	}
}

func TestHistoryListsChannelIDs(t *testing.T) {
	router := newChatRouter(&fakeChat{}, &fakeLister{ids: []string{"a", "b", "c"}})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/history/service", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var ids []string
	if err := json.Unmarshal(w.Body.Bytes(), &ids); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" {
		t.Errorf("ids = %v", ids)
	}
}

func TestHistoryRejectsUnknownChannel(t *testing.T) {
	router := newChatRouter(&fakeChat{}, &fakeLister{ids: []string{"a"}})

	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/history/voice", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
