package github

import (
	"errors"
	"fmt"
)

// Kind discriminates gateway failures the dispatcher acts on.
type Kind string

// Error kinds. Anything the remote API reports that does not map onto one
// of these stays a plain error and follows the caller's retry policy.
const (
	KindAccessDenied   Kind = "access_denied"
	KindRateLimited    Kind = "rate_limited"
	KindInvalidStatus  Kind = "invalid_status"
	KindPrAccessDenied Kind = "pr_access_denied"
)

// Error is a classified gateway failure carrying the remote context needed
// to replay the call by hand.
type Error struct {
	Kind  Kind
	Repo  string
	Query string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("github %s: repo=%q query=%q", e.Kind, e.Repo, e.Query)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from an error chain. The second return
// is false for unclassified errors.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return "", false
}

// IsStop reports whether the error kind means the job must stop without a
// retry. Rate limits also stop the job but are surfaced separately.
func IsStop(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindAccessDenied, KindInvalidStatus, KindPrAccessDenied, KindRateLimited:
		return true
	}
	return false
}
