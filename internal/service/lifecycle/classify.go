package lifecycle

import "github.com/CodeNow/pheidi-sub000/internal/domain"

const containerStatusExited = "exited"

// Classify derives the lifecycle state of an instance from its latest build
// context and attached container. Order matters: a failed build wins over a
// completed timestamp left behind by a stale retry. StateUnknown means the
// caller must not notify.
func Classify(cv domain.ContextVersion, container domain.Container) domain.LifecycleState {
	switch {
	case cv.Failed:
		return domain.StateFailed
	case cv.Completed != nil:
		if container.Status == containerStatusExited {
			return domain.StateStopped
		}
		return domain.StateRunning
	case cv.State == domain.BuildStateStarted:
		return domain.StateBuilding
	default:
		return domain.StateUnknown
	}
}

// ToCommitStatus maps a lifecycle state onto the commit status vocabulary.
func ToCommitStatus(state domain.LifecycleState) string {
	switch state {
	case domain.StateBuilding:
		return domain.CommitStatusPending
	case domain.StateRunning:
		return domain.CommitStatusSuccess
	case domain.StateStopped:
		return domain.CommitStatusError
	case domain.StateFailed:
		return domain.CommitStatusFailure
	default:
		return domain.CommitStatusError
	}
}
