package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token for API calls. A static personal
// token and an app-installation token both satisfy it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a fixed personal access token.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client implements Gateway over the GitHub REST API.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	logger  *slog.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient constructs a Client against baseURL (usually the public API).
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

type commentPayload struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
}

type pullPayload struct {
	Number int `json:"number"`
	Head   struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
}

// FindCommentByAuthor lists the pull request's comments and returns the
// first one authored by login, or nil when none exists.
func (c *Client) FindCommentByAuthor(ctx context.Context, repo string, prNumber int, login string) (*domain.BotComment, error) {
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, prNumber)
	var comments []commentPayload
	if err := c.do(ctx, http.MethodGet, path, repo, nil, &comments); err != nil {
		return nil, err
	}
	for _, comment := range comments {
		if comment.User.Login == login {
			return &domain.BotComment{ID: comment.ID, Body: comment.Body, Author: comment.User.Login}, nil
		}
	}
	return nil, nil
}

// CreateComment posts a new comment on the pull request.
func (c *Client) CreateComment(ctx context.Context, repo string, prNumber int, body string) (*domain.BotComment, error) {
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, prNumber)
	var created commentPayload
	if err := c.do(ctx, http.MethodPost, path, repo, map[string]string{"body": body}, &created); err != nil {
		return nil, err
	}
	return &domain.BotComment{ID: created.ID, Body: created.Body, Author: created.User.Login}, nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, repo string, commentID int64, body string) (*domain.BotComment, error) {
	path := fmt.Sprintf("/repos/%s/issues/comments/%d", repo, commentID)
	var updated commentPayload
	if err := c.do(ctx, http.MethodPatch, path, repo, map[string]string{"body": body}, &updated); err != nil {
		return nil, err
	}
	return &domain.BotComment{ID: updated.ID, Body: updated.Body, Author: updated.User.Login}, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, repo string, commentID int64) error {
	path := fmt.Sprintf("/repos/%s/issues/comments/%d", repo, commentID)
	return c.do(ctx, http.MethodDelete, path, repo, nil, nil)
}

// ListOpenPullRequests returns open pull requests for repo whose head branch
// is exactly branch. The remote head filter misses renames and forks, so the
// result is re-filtered locally.
func (c *Client) ListOpenPullRequests(ctx context.Context, repo, branch string) ([]domain.PullRequest, error) {
	owner, _, _ := strings.Cut(repo, "/")
	path := fmt.Sprintf("/repos/%s/pulls?state=open&head=%s", repo, url.QueryEscape(owner+":"+branch))
	var pulls []pullPayload
	if err := c.do(ctx, http.MethodGet, path, repo, nil, &pulls); err != nil {
		return nil, err
	}
	result := make([]domain.PullRequest, 0, len(pulls))
	for _, pull := range pulls {
		if pull.Head.Ref != branch {
			continue
		}
		result = append(result, domain.PullRequest{Number: pull.Number, HeadBranch: pull.Head.Ref, HeadSHA: pull.Head.SHA})
	}
	return result, nil
}

// CreateCommitStatus writes a commit status for the given SHA.
func (c *Client) CreateCommitStatus(ctx context.Context, repo string, status domain.CommitStatus) error {
	path := fmt.Sprintf("/repos/%s/statuses/%s", repo, status.SHA)
	payload := map[string]string{
		"state":       status.State,
		"target_url":  status.TargetURL,
		"description": status.Description,
		"context":     status.Context,
	}
	return c.do(ctx, http.MethodPost, path, repo, payload, nil)
}

// AcceptOrgInvitation marks the bot's membership in org active.
func (c *Client) AcceptOrgInvitation(ctx context.Context, org string) error {
	path := "/user/memberships/orgs/" + org
	return c.do(ctx, http.MethodPatch, path, org, map[string]string{"state": "active"}, nil)
}

func (c *Client) do(ctx context.Context, method, path, repo string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolve token: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classify(method, path, repo, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// classify maps remote HTTP failures onto the domain error taxonomy:
// 404 means the bot cannot see the resource, 403 means throttling. Anything
// else stays generic and is eligible for broker-level retry.
func (c *Client) classify(method, path, repo string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	cause := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return &Error{Kind: KindAccessDenied, Repo: repo, Query: path, Err: cause}
	case http.StatusForbidden:
		return &Error{Kind: KindRateLimited, Repo: repo, Query: path, Err: cause}
	}
	if c.logger != nil {
		c.logger.Error("github request failed", "method", method, "path", path, "status", strconv.Itoa(resp.StatusCode))
	}
	return cause
}
