package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
	"github.com/CodeNow/pheidi-sub000/internal/gateway/github"
	"github.com/CodeNow/pheidi-sub000/internal/service/message"
)

const botLogin = "runnabot"

type fakeGateway struct {
	mu sync.Mutex

	comments map[int]*domain.BotComment
	pulls    []domain.PullRequest

	findErr   error
	createErr error
	updateErr map[int]error
	listErr   error

	createCalls int
	updateCalls int
	deleteCalls int
	lastBody    string
	lastUpdated int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		comments:  make(map[int]*domain.BotComment),
		updateErr: make(map[int]error),
	}
}

func (f *fakeGateway) FindCommentByAuthor(_ context.Context, _ string, prNumber int, login string) (*domain.BotComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	comment, ok := f.comments[prNumber]
	if !ok || comment.Author != login {
		return nil, nil
	}
	copied := *comment
	return &copied, nil
}

func (f *fakeGateway) CreateComment(_ context.Context, _ string, prNumber int, body string) (*domain.BotComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := &domain.BotComment{ID: int64(1000 + prNumber), Body: body, Author: botLogin}
	f.comments[prNumber] = created
	f.lastBody = body
	return created, nil
}

func (f *fakeGateway) UpdateComment(_ context.Context, _ string, commentID int64, body string) (*domain.BotComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	for pr, comment := range f.comments {
		if comment.ID == commentID {
			if err := f.updateErr[pr]; err != nil {
				return nil, err
			}
			comment.Body = body
			f.lastBody = body
			f.lastUpdated = commentID
			copied := *comment
			return &copied, nil
		}
	}
	return nil, errors.New("comment not found")
}

func (f *fakeGateway) DeleteComment(_ context.Context, _ string, commentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	for pr, comment := range f.comments {
		if comment.ID == commentID {
			delete(f.comments, pr)
			return nil
		}
	}
	return errors.New("comment not found")
}

func (f *fakeGateway) ListOpenPullRequests(_ context.Context, _, _ string) ([]domain.PullRequest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pulls, nil
}

func (f *fakeGateway) CreateCommitStatus(context.Context, string, domain.CommitStatus) error {
	return nil
}

func (f *fakeGateway) AcceptOrgInvitation(context.Context, string) error {
	return nil
}

var _ github.Gateway = (*fakeGateway)(nil)

func newTestService(gw *fakeGateway) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	renderer := message.New("runnableapp.com", "https://app.runnable.io")
	return New(gw, renderer, botLogin, logger)
}

func testPush() domain.PushEvent {
	return domain.PushEvent{Repo: "codenow/hellonode", Branch: "feature-1", State: domain.StateRunning}
}

func testInstance() domain.Instance {
	return domain.Instance{
		Name:      "feature-1-hellonode",
		ShortHash: "ga71a12",
		MasterPod: true,
		Owner:     domain.InstanceOwner{Username: "codenow"},
	}
}

func TestUpsertCommentCreatesWhenMissing(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(gw)

	if err := svc.UpsertComment(context.Background(), testPush(), testInstance(), nil, 7); err != nil {
		t.Fatalf("UpsertComment returned error: %v", err)
	}
	if gw.createCalls != 1 {
		t.Fatalf("expected one create, got %d", gw.createCalls)
	}
	if gw.updateCalls != 0 {
		t.Fatalf("expected zero updates, got %d", gw.updateCalls)
	}
}

func TestUpsertCommentUpdatesWhenBodyDiffers(t *testing.T) {
	gw := newFakeGateway()
	gw.comments[7] = &domain.BotComment{ID: 42, Body: "stale body", Author: botLogin}
	svc := newTestService(gw)

	if err := svc.UpsertComment(context.Background(), testPush(), testInstance(), nil, 7); err != nil {
		t.Fatalf("UpsertComment returned error: %v", err)
	}
	if gw.updateCalls != 1 {
		t.Fatalf("expected one update, got %d", gw.updateCalls)
	}
	if gw.lastUpdated != 42 {
		t.Fatalf("expected update against existing comment id 42, got %d", gw.lastUpdated)
	}
	if gw.createCalls != 0 {
		t.Fatalf("expected zero creates, got %d", gw.createCalls)
	}
}

func TestUpsertCommentIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(gw)
	push := testPush()
	inst := testInstance()

	if err := svc.UpsertComment(context.Background(), push, inst, nil, 7); err != nil {
		t.Fatalf("first upsert returned error: %v", err)
	}
	if err := svc.UpsertComment(context.Background(), push, inst, nil, 7); err != nil {
		t.Fatalf("second upsert returned error: %v", err)
	}
	if gw.createCalls != 1 {
		t.Fatalf("expected exactly one create, got %d", gw.createCalls)
	}
	if gw.updateCalls != 0 {
		t.Fatalf("expected zero updates after redelivery, got %d", gw.updateCalls)
	}
}

func TestUpsertCommentIgnoresOtherAuthors(t *testing.T) {
	gw := newFakeGateway()
	gw.comments[7] = &domain.BotComment{ID: 9, Body: "human words", Author: "alice"}
	svc := newTestService(gw)

	if err := svc.UpsertComment(context.Background(), testPush(), testInstance(), nil, 7); err != nil {
		t.Fatalf("UpsertComment returned error: %v", err)
	}
	if gw.createCalls != 1 {
		t.Fatalf("expected a fresh bot comment, got %d creates", gw.createCalls)
	}
}

func TestUpsertAllForBranchAttemptsEveryPull(t *testing.T) {
	gw := newFakeGateway()
	gw.pulls = []domain.PullRequest{
		{Number: 1, HeadBranch: "feature-1"},
		{Number: 2, HeadBranch: "feature-1"},
		{Number: 3, HeadBranch: "feature-1"},
	}
	gw.comments[2] = &domain.BotComment{ID: 50, Body: "stale", Author: botLogin}
	gw.updateErr[2] = errors.New("update blew up")
	svc := newTestService(gw)

	err := svc.UpsertAllForBranch(context.Background(), testPush(), testInstance(), nil)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if gw.createCalls != 2 {
		t.Fatalf("expected creates on the two untouched pulls, got %d", gw.createCalls)
	}
}

func TestUpsertAllForBranchNoPulls(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(gw)

	if err := svc.UpsertAllForBranch(context.Background(), testPush(), testInstance(), nil); err != nil {
		t.Fatalf("expected nil for empty pull list, got %v", err)
	}
	if gw.createCalls != 0 {
		t.Fatalf("expected no writes, got %d", gw.createCalls)
	}
}

func TestDeleteAllForBranchRemovesBotComments(t *testing.T) {
	gw := newFakeGateway()
	gw.pulls = []domain.PullRequest{
		{Number: 1, HeadBranch: "feature-1"},
		{Number: 2, HeadBranch: "feature-1"},
	}
	gw.comments[1] = &domain.BotComment{ID: 10, Body: "old", Author: botLogin}
	svc := newTestService(gw)

	if err := svc.DeleteAllForBranch(context.Background(), testPush()); err != nil {
		t.Fatalf("DeleteAllForBranch returned error: %v", err)
	}
	if gw.deleteCalls != 1 {
		t.Fatalf("expected one delete, got %d", gw.deleteCalls)
	}
	if len(gw.comments) != 0 {
		t.Fatalf("expected comments removed, got %d left", len(gw.comments))
	}
}
