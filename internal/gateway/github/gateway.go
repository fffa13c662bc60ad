package github

import (
	"context"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
)

// Gateway is the capability surface the worker needs from the source-control
// API. Implementations classify remote failures into *Error values.
type Gateway interface {
	// FindCommentByAuthor returns the first comment on the pull request
	// authored by login, or nil when the bot has not commented yet.
	FindCommentByAuthor(ctx context.Context, repo string, prNumber int, login string) (*domain.BotComment, error)
	CreateComment(ctx context.Context, repo string, prNumber int, body string) (*domain.BotComment, error)
	UpdateComment(ctx context.Context, repo string, commentID int64, body string) (*domain.BotComment, error)
	DeleteComment(ctx context.Context, repo string, commentID int64) error
	// ListOpenPullRequests returns open pull requests whose head branch is
	// exactly branch. Results are re-filtered locally because the remote
	// branch filter is unreliable.
	ListOpenPullRequests(ctx context.Context, repo, branch string) ([]domain.PullRequest, error)
	CreateCommitStatus(ctx context.Context, repo string, status domain.CommitStatus) error
	// AcceptOrgInvitation activates the bot's membership in org. Idempotent
	// when the membership is already active.
	AcceptOrgInvitation(ctx context.Context, org string) error
}
