package messageapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/shared/config"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		APIBaseURL:           server.URL,
		APIToken:             "test-token",
		APITimeout:           5,
		APIMaxRetries:        2,
		APIRequestsPerMinute: 6000,
	}
	return NewClient(cfg, nil, slog.New(slog.DiscardHandler))
}

func TestFetchMessages(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Query().Get("limit") != "100" || r.URL.Query().Get("offset") != "50" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total": 2,
			"messages": [
				{"id": 1, "message_id": 11, "channel": {"id": 7, "name": "ch"}, "date": "2025-11-16T14:09:54Z"},
				{"id": 2, "message_id": 12, "channel": {"id": 7, "name": "ch"}, "date": "2025-11-16T14:10:54Z"}
			]
		}`))
	}))

	page, err := client.FetchMessages(context.Background(), 100, 50, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if page.Total != 2 || len(page.Messages) != 2 {
		t.Fatalf("unexpected page: total=%d messages=%d", page.Total, len(page.Messages))
	}
	if page.Messages[0].MessageID != 11 {
		t.Fatalf("unexpected first message id %d", page.Messages[0].MessageID)
	}
}

func TestFetchMessagesRateLimited(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.FetchMessages(context.Background(), 10, 0, false)
	var remoteErr *apperrors.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Kind != apperrors.RemoteRateLimit {
		t.Fatalf("expected rate limit kind, got %s", remoteErr.Kind)
	}
	if remoteErr.RetryAfter != 30*time.Second {
		t.Fatalf("expected 30s retry-after, got %s", remoteErr.RetryAfter)
	}
	if calls != 1 {
		t.Fatalf("429 must not be retried, got %d calls", calls)
	}
}

func TestFetchMessagesServerError(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.FetchMessages(context.Background(), 10, 0, false)
	var remoteErr *apperrors.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Kind != apperrors.RemoteResponse || remoteErr.StatusCode != 500 {
		t.Fatalf("unexpected error: %+v", remoteErr)
	}
	if remoteErr.Retryable() {
		t.Fatal("application responses must not be retryable")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestFetchMessagesRetriesConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	cfg := &config.Config{
		APIBaseURL:           server.URL,
		APIToken:             "t",
		APITimeout:           1,
		APIMaxRetries:        1,
		APIRequestsPerMinute: 6000,
	}
	client := NewClient(cfg, nil, slog.New(slog.DiscardHandler))

	_, err := client.FetchMessages(context.Background(), 10, 0, false)
	var remoteErr *apperrors.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Kind != apperrors.RemoteConnection {
		t.Fatalf("expected connection kind, got %s", remoteErr.Kind)
	}
	if !remoteErr.Retryable() {
		t.Fatal("connection failures must be retryable")
	}
}

func TestValidate(t *testing.T) {
	username := " @channel_name "
	blank := "   "
	msg := RemoteMessage{
		MessageID: 5,
		Channel:   ChannelInfo{ID: 1, Name: "  کانال تست  ", Username: &username},
		Text:      &blank,
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if msg.Channel.Name != "کانال تست" {
		t.Fatalf("expected trimmed name, got %q", msg.Channel.Name)
	}
	if msg.Channel.Username == nil || *msg.Channel.Username != "channel_name" {
		t.Fatalf("expected stripped username, got %v", msg.Channel.Username)
	}
	if msg.Text != nil {
		t.Fatal("blank text must become absent")
	}
}

func TestValidateRejectsNonPositiveMessageID(t *testing.T) {
	msg := RemoteMessage{MessageID: 0, Channel: ChannelInfo{Name: "ch"}}
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for message_id 0")
	}
}
