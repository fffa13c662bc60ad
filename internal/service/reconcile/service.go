package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
	"github.com/CodeNow/pheidi-sub000/internal/gateway/github"
	"github.com/CodeNow/pheidi-sub000/internal/service/message"
)

// Service reconciles bot comments on pull requests against the freshly
// rendered message for a push. Unchanged bodies are never rewritten, which
// keeps the whole path idempotent under broker redelivery.
type Service struct {
	gateway  github.Gateway
	renderer message.Renderer
	botLogin string
	logger   *slog.Logger
}

// New constructs a reconcile service.
func New(gateway github.Gateway, renderer message.Renderer, botLogin string, logger *slog.Logger) Service {
	return Service{
		gateway:  gateway,
		renderer: renderer,
		botLogin: botLogin,
		logger:   logger,
	}
}

// UpsertComment creates or updates the bot comment on one pull request.
// When the existing body already equals the candidate, nothing is written.
func (s Service) UpsertComment(ctx context.Context, push domain.PushEvent, inst domain.Instance, siblings []domain.Instance, prNumber int) error {
	existing, err := s.gateway.FindCommentByAuthor(ctx, push.Repo, prNumber, s.botLogin)
	if err != nil {
		return err
	}
	body := s.renderer.Render(push, inst, siblings)

	switch {
	case existing == nil:
		if _, err := s.gateway.CreateComment(ctx, push.Repo, prNumber, body); err != nil {
			return err
		}
		s.logger.Info("comment created", "repo", push.Repo, "pr", prNumber, "branch", push.Branch)
	case existing.Body != body:
		if _, err := s.gateway.UpdateComment(ctx, push.Repo, existing.ID, body); err != nil {
			return err
		}
		s.logger.Info("comment updated", "repo", push.Repo, "pr", prNumber, "comment_id", existing.ID)
	default:
		s.logger.Debug("comment unchanged", "repo", push.Repo, "pr", prNumber, "comment_id", existing.ID)
	}
	return nil
}

// UpsertAllForBranch reconciles the bot comment on every open pull request
// whose head is the pushed branch. Per-PR upserts run concurrently and a
// failure in one never cancels the others; the first failure is reported
// once all have been attempted.
func (s Service) UpsertAllForBranch(ctx context.Context, push domain.PushEvent, inst domain.Instance, siblings []domain.Instance) error {
	pulls, err := s.gateway.ListOpenPullRequests(ctx, push.Repo, push.Branch)
	if err != nil {
		return err
	}
	if len(pulls) == 0 {
		s.logger.Debug("no open pull requests for branch", "repo", push.Repo, "branch", push.Branch)
		return nil
	}

	errs := make([]error, len(pulls))
	var wg sync.WaitGroup
	for idx, pull := range pulls {
		wg.Add(1)
		go func(idx, prNumber int) {
			defer wg.Done()
			errs[idx] = s.UpsertComment(ctx, push, inst, siblings, prNumber)
		}(idx, pull.Number)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllForBranch removes the bot comment from every open pull request on
// the pushed branch. Missing comments are not an error.
func (s Service) DeleteAllForBranch(ctx context.Context, push domain.PushEvent) error {
	pulls, err := s.gateway.ListOpenPullRequests(ctx, push.Repo, push.Branch)
	if err != nil {
		return err
	}

	errs := make([]error, len(pulls))
	var wg sync.WaitGroup
	for idx, pull := range pulls {
		wg.Add(1)
		go func(idx, prNumber int) {
			defer wg.Done()
			existing, err := s.gateway.FindCommentByAuthor(ctx, push.Repo, prNumber, s.botLogin)
			if err != nil {
				errs[idx] = err
				return
			}
			if existing == nil {
				return
			}
			if err := s.gateway.DeleteComment(ctx, push.Repo, existing.ID); err != nil {
				errs[idx] = err
				return
			}
			s.logger.Info("comment deleted", "repo", push.Repo, "pr", prNumber, "comment_id", existing.ID)
		}(idx, pull.Number)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
