package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedMessage struct {
	userID string
	text   string
}

type fakeBot struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (f *fakeBot) HandleMessage(_ context.Context, userID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, recordedMessage{userID: userID, text: text})
}

func (f *fakeBot) recorded() []recordedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedMessage(nil), f.messages...)
}

type fakeCounter struct{}

func (fakeCounter) Counts() (int, int) { return 3, 1 }

func testServer() (*Server, *fakeBot) {
	b := &fakeBot{}
	s := New(&Config{
		Bot:         b,
		Counter:     fakeCounter{},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		VerifyToken: "secret-token",
	})
	return s, b
}

func TestWebhookVerification(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid handshake echoes challenge",
			query:      "hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345",
			wantStatus: http.StatusOK,
			wantBody:   "12345",
		},
		{
			name:       "wrong token rejected",
			query:      "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrong mode rejected",
			query:      "hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=12345",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing params rejected",
			query:      "",
			wantStatus: http.StatusForbidden,
		},
	}

	s, _ := testServer()
	router := s.Router()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestWebhookEventAcknowledged(t *testing.T) {
	s, b := testServer()
	router := s.Router()

	body := `{"object":"page","entry":[{"messaging":[{"sender":{"id":"u1"},"message":{"text":"track"}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "EVENT_RECEIVED" {
		t.Errorf("body = %q, want EVENT_RECEIVED", rec.Body.String())
	}

	deadline := time.After(2 * time.Second)
	for {
		if msgs := b.recorded(); len(msgs) == 1 {
			if msgs[0].userID != "u1" || msgs[0].text != "track" {
				t.Errorf("recorded message = %+v", msgs[0])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("bot never received the message")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWebhookIgnoresNonPageObjects(t *testing.T) {
	s, b := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"user"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(b.recorded()) != 0 {
		t.Error("non-page event reached the bot")
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	s, _ := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if resp.Status != "active" {
		t.Errorf("status field = %q, want active", resp.Status)
	}
	if resp.Features.ActiveSessions != 3 || resp.Features.VIPUsers != 1 {
		t.Errorf("counts = (%d, %d), want (3, 1)",
			resp.Features.ActiveSessions, resp.Features.VIPUsers)
	}
	if len(resp.Features.SpecialItems) == 0 {
		t.Error("special items list is empty")
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = (%d, %q), want (200, ok)", rec.Code, rec.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing generated X-Request-ID")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want caller-supplied abc-123", got)
	}
}
