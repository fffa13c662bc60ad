package domain

// BotComment is a comment the bot account authored on a pull request.
type BotComment struct {
	ID     int64
	Body   string
	Author string
}

// PullRequest summarizes an open pull request returned by the gateway.
type PullRequest struct {
	Number     int
	HeadBranch string
	HeadSHA    string
}

// Commit status states accepted by the source-control API.
const (
	CommitStatusPending = "pending"
	CommitStatusSuccess = "success"
	CommitStatusError   = "error"
	CommitStatusFailure = "failure"
)

// CommitStatus is an outbound status write for a commit SHA.
type CommitStatus struct {
	SHA         string
	State       string
	TargetURL   string
	Description string
	Context     string
}
