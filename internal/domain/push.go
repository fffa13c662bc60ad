package domain

// LifecycleState is the derived status of a deployed instance.
type LifecycleState string

// Lifecycle states derived from build and container status. StateUnknown
// means the state could not be determined and no notification should go out.
const (
	StateBuilding LifecycleState = "building"
	StateRunning  LifecycleState = "running"
	StateStopped  LifecycleState = "stopped"
	StateFailed   LifecycleState = "failed"
	StateUnknown  LifecycleState = ""
)

// ParseLifecycleState maps a payload string onto a LifecycleState.
// Anything outside the known set is StateUnknown.
func ParseLifecycleState(raw string) LifecycleState {
	switch LifecycleState(raw) {
	case StateBuilding, StateRunning, StateStopped, StateFailed:
		return LifecycleState(raw)
	default:
		return StateUnknown
	}
}

// PushEvent describes a code push being notified on. Immutable once built.
type PushEvent struct {
	Repo     string
	Branch   string
	PRNumber int
	State    LifecycleState
	Commits  []Commit
}

// Commit is one entry of a push's commit log.
type Commit struct {
	ID      string
	Message string
	URL     string
	Author  string
}
