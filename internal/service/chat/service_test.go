package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CodeNow/pheidi-sub000/pkg/config"
)

func newTestChat(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(config.WorkerConfig{
		ChatWebhookURL:      srv.URL,
		ChatBotName:         "runnabot",
		ChatIconURL:         "https://cdn.runnable.io/icons/bot.png",
		ChatDedupTTL:        3 * time.Minute,
		ChatDedupMaxEntries: 10,
	}, logger)
	t.Cleanup(svc.Close)
	return svc
}

func TestSendDMPostsPayload(t *testing.T) {
	var got map[string]string
	svc := newTestChat(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}))

	if err := svc.SendDM(context.Background(), "@alice", "your trial is ending"); err != nil {
		t.Fatalf("SendDM returned error: %v", err)
	}
	if got["channel"] != "@alice" || got["text"] != "your trial is ending" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got["username"] != "runnabot" {
		t.Fatalf("expected bot username, got %+v", got)
	}
}

func TestSendDMSuppressesDuplicates(t *testing.T) {
	calls := 0
	svc := newTestChat(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 3; i++ {
		if err := svc.SendDM(context.Background(), "@alice", "same message"); err != nil {
			t.Fatalf("SendDM returned error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}

	if err := svc.SendDM(context.Background(), "@bob", "same message"); err != nil {
		t.Fatalf("SendDM returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected different recipient to pass, got %d calls", calls)
	}
}

func TestSendDMNoWebhookIsNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(config.WorkerConfig{}, logger)
	defer svc.Close()

	if err := svc.SendDM(context.Background(), "@alice", "hello"); err != nil {
		t.Fatalf("expected noop, got %v", err)
	}
}

func TestDedupCacheExpiry(t *testing.T) {
	cache := newDedupCache(time.Minute, 10)
	defer cache.Close()
	current := time.Unix(0, 0)
	cache.now = func() time.Time { return current }

	if cache.Seen("key") {
		t.Fatal("first sighting must not be marked seen")
	}
	if !cache.Seen("key") {
		t.Fatal("second sighting within ttl must be seen")
	}
	current = current.Add(2 * time.Minute)
	if cache.Seen("key") {
		t.Fatal("expired entry must not be seen")
	}
}

func TestDedupCacheBounded(t *testing.T) {
	cache := newDedupCache(time.Hour, 3)
	defer cache.Close()
	current := time.Unix(0, 0)
	cache.now = func() time.Time { return current }

	for i, key := range []string{"a", "b", "c", "d"} {
		current = current.Add(time.Second)
		if cache.Seen(key) {
			t.Fatalf("entry %d unexpectedly seen", i)
		}
	}
	cache.mu.Lock()
	size := len(cache.entries)
	cache.mu.Unlock()
	if size > 3 {
		t.Fatalf("expected cache capped at 3 entries, got %d", size)
	}
	// Oldest entry was evicted to make room; a duplicate of it resends.
	if cache.Seen("a") {
		t.Fatal("evicted entry must not be seen")
	}
}
