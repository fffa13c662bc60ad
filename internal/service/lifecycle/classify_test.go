package lifecycle

import (
	"testing"
	"time"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
)

func TestClassifyFailedWinsOverCompleted(t *testing.T) {
	completed := time.Unix(1000, 0)
	cv := domain.ContextVersion{Failed: true, Completed: &completed}
	got := Classify(cv, domain.Container{Status: "running"})
	if got != domain.StateFailed {
		t.Fatalf("expected failed, got %q", got)
	}
}

func TestClassifyCompletedExitedContainer(t *testing.T) {
	completed := time.Unix(1000, 0)
	cv := domain.ContextVersion{Completed: &completed}
	got := Classify(cv, domain.Container{Status: "exited"})
	if got != domain.StateStopped {
		t.Fatalf("expected stopped, got %q", got)
	}
}

func TestClassifyCompletedRunningContainer(t *testing.T) {
	completed := time.Unix(1000, 0)
	cv := domain.ContextVersion{Completed: &completed}
	got := Classify(cv, domain.Container{Status: "running"})
	if got != domain.StateRunning {
		t.Fatalf("expected running, got %q", got)
	}
}

func TestClassifyCompletedNoContainer(t *testing.T) {
	completed := time.Unix(1000, 0)
	cv := domain.ContextVersion{Completed: &completed}
	got := Classify(cv, domain.Container{})
	if got != domain.StateRunning {
		t.Fatalf("expected running when container status empty, got %q", got)
	}
}

func TestClassifyBuildStarted(t *testing.T) {
	cv := domain.ContextVersion{State: domain.BuildStateStarted}
	got := Classify(cv, domain.Container{})
	if got != domain.StateBuilding {
		t.Fatalf("expected building, got %q", got)
	}
}

func TestClassifyUndeterminable(t *testing.T) {
	got := Classify(domain.ContextVersion{State: "something_else"}, domain.Container{})
	if got != domain.StateUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestToCommitStatus(t *testing.T) {
	cases := []struct {
		state domain.LifecycleState
		want  string
	}{
		{domain.StateBuilding, domain.CommitStatusPending},
		{domain.StateRunning, domain.CommitStatusSuccess},
		{domain.StateStopped, domain.CommitStatusError},
		{domain.StateFailed, domain.CommitStatusFailure},
		{domain.StateUnknown, domain.CommitStatusError},
	}
	for _, tc := range cases {
		if got := ToCommitStatus(tc.state); got != tc.want {
			t.Fatalf("state %q: expected %q, got %q", tc.state, tc.want, got)
		}
	}
}
