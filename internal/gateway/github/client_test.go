package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(srv.URL, StaticToken("test-token"), logger)
}

func TestFindCommentByAuthorReturnsFirstMatch(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/codenow/hellonode/issues/7/comments" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "body": "human comment", "user": map[string]any{"login": "alice"}},
			{"id": 2, "body": "bot comment", "user": map[string]any{"login": "runnabot"}},
			{"id": 3, "body": "stale bot comment", "user": map[string]any{"login": "runnabot"}},
		})
	}))

	comment, err := client.FindCommentByAuthor(context.Background(), "codenow/hellonode", 7, "runnabot")
	if err != nil {
		t.Fatalf("FindCommentByAuthor returned error: %v", err)
	}
	if comment == nil || comment.ID != 2 {
		t.Fatalf("expected first bot comment id 2, got %+v", comment)
	}
}

func TestFindCommentByAuthorNoMatch(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "body": "human", "user": map[string]any{"login": "alice"}},
		})
	}))

	comment, err := client.FindCommentByAuthor(context.Background(), "codenow/hellonode", 7, "runnabot")
	if err != nil {
		t.Fatalf("FindCommentByAuthor returned error: %v", err)
	}
	if comment != nil {
		t.Fatalf("expected nil comment, got %+v", comment)
	}
}

func TestClassify404AsAccessDenied(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))

	_, err := client.FindCommentByAuthor(context.Background(), "codenow/private", 1, "runnabot")
	kind, ok := KindOf(err)
	if !ok || kind != KindAccessDenied {
		t.Fatalf("expected access denied, got %v", err)
	}
	var ge *Error
	if !errors.As(err, &ge) || ge.Repo != "codenow/private" {
		t.Fatalf("expected repo context on error, got %v", err)
	}
}

func TestClassify403AsRateLimited(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
	}))

	_, err := client.CreateComment(context.Background(), "codenow/hellonode", 1, "body")
	kind, ok := KindOf(err)
	if !ok || kind != KindRateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestClassifyOtherStatusStaysGeneric(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusBadGateway)
	}))

	_, err := client.CreateComment(context.Background(), "codenow/hellonode", 1, "body")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := KindOf(err); ok {
		t.Fatalf("expected unclassified error, got %v", err)
	}
}

func TestListOpenPullRequestsFiltersHeadBranchLocally(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Fatalf("expected state=open, got %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"number": 4, "head": map[string]any{"ref": "feature-1", "sha": "aaa"}},
			{"number": 5, "head": map[string]any{"ref": "feature-10", "sha": "bbb"}},
			{"number": 6, "head": map[string]any{"ref": "feature-1", "sha": "ccc"}},
		})
	}))

	pulls, err := client.ListOpenPullRequests(context.Background(), "codenow/hellonode", "feature-1")
	if err != nil {
		t.Fatalf("ListOpenPullRequests returned error: %v", err)
	}
	if len(pulls) != 2 {
		t.Fatalf("expected 2 pull requests, got %d", len(pulls))
	}
	for _, pull := range pulls {
		if pull.HeadBranch != "feature-1" {
			t.Fatalf("expected exact head branch match, got %q", pull.HeadBranch)
		}
	}
}

func TestCreateCommitStatusPayload(t *testing.T) {
	var got map[string]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/codenow/hellonode/statuses/abc123" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	status := domain.CommitStatus{
		SHA:         "abc123",
		State:       domain.CommitStatusSuccess,
		TargetURL:   "https://app.runnable.io/codenow/hellonode",
		Description: "deployed",
		Context:     "runnable/hellonode",
	}
	if err := client.CreateCommitStatus(context.Background(), "codenow/hellonode", status); err != nil {
		t.Fatalf("CreateCommitStatus returned error: %v", err)
	}
	if got["state"] != "success" || got["context"] != "runnable/hellonode" {
		t.Fatalf("unexpected status payload %+v", got)
	}
}

func TestAcceptOrgInvitationSetsActive(t *testing.T) {
	var got map[string]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/user/memberships/orgs/codenow" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}))

	if err := client.AcceptOrgInvitation(context.Background(), "codenow"); err != nil {
		t.Fatalf("AcceptOrgInvitation returned error: %v", err)
	}
	if got["state"] != "active" {
		t.Fatalf("expected state active, got %+v", got)
	}
}
