package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
	"github.com/CodeNow/pheidi-sub000/internal/queue"
	"github.com/CodeNow/pheidi-sub000/internal/repository"
	"github.com/CodeNow/pheidi-sub000/internal/service/lifecycle"
	"github.com/CodeNow/pheidi-sub000/internal/service/message"
)

// HandlePushNotification is the per-event entry point for the core path:
// a push/deploy happened and the bot comments on the affected pull requests.
func (s Service) HandlePushNotification(ctx context.Context, job queue.Envelope) error {
	payload, err := decode[domain.PushJob](job)
	if err != nil {
		return queue.Permanent(fmt.Errorf("malformed push job: %w", err))
	}
	if err := validatePushJob(payload); err != nil {
		return queue.Permanent(err)
	}

	log := s.logger.With("job_id", job.ID, "repo", payload.PushInfo.Repo, "branch", payload.PushInfo.Branch)

	inst, err := s.instances.GetInstanceByID(ctx, payload.Instance.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("instance gone, nothing to notify", "instance_id", payload.Instance.ID)
			return nil
		}
		return err
	}

	siblings, err := s.resolveSiblings(ctx, *inst)
	if err != nil {
		return err
	}

	push := buildPushEvent(payload)
	if push.State == domain.StateUnknown {
		push.State = lifecycle.Classify(inst.CurrentContextVersion(), inst.CurrentContainer())
	}
	if push.State == domain.StateUnknown {
		log.Info("lifecycle state undeterminable, skipping notification", "instance_id", inst.ID)
		return nil
	}

	org := inst.Owner.Username
	if err := s.gateway.AcceptOrgInvitation(ctx, org); err != nil {
		return s.consumeGatewayError(err, "org", org, "job_id", job.ID)
	}

	if s.cfg.EnablePRComments {
		if push.PRNumber > 0 {
			err = s.reconciler.UpsertComment(ctx, push, *inst, siblings, push.PRNumber)
		} else {
			err = s.reconciler.UpsertAllForBranch(ctx, push, *inst, siblings)
		}
		if err != nil {
			return s.consumeGatewayError(err, "org", org, "job_id", job.ID, "pr", push.PRNumber)
		}
	} else {
		log.Debug("pr comments disabled, skipping reconcile")
	}

	if err := s.writeDeploymentStatus(ctx, push, *inst); err != nil {
		return s.consumeGatewayError(err, "org", org, "job_id", job.ID)
	}

	s.publishOutcome(org, QueuePushNotify, push.Repo, push.Branch, push.State)
	log.Info("push notification handled", "state", string(push.State), "instance", inst.Name)
	return nil
}

// resolveSiblings loads the other members of an isolation group when the
// instance is the group's primary. Non-isolated instances have none.
func (s Service) resolveSiblings(ctx context.Context, inst domain.Instance) ([]domain.Instance, error) {
	if inst.IsolationID == "" || !inst.IsolatedMaster {
		return nil, nil
	}
	siblings, err := s.instances.ListIsolationSiblings(ctx, inst.IsolationID, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("list isolation siblings: %w", err)
	}
	return siblings, nil
}

// writeDeploymentStatus posts a commit status for the pushed commit when
// deployment statuses are enabled and the build has a known commit.
func (s Service) writeDeploymentStatus(ctx context.Context, push domain.PushEvent, inst domain.Instance) error {
	if !s.cfg.EnableDeploymentStatus {
		return nil
	}
	sha := headCommit(push, inst)
	if sha == "" {
		return nil
	}
	status := domain.CommitStatus{
		SHA:         sha,
		State:       lifecycle.ToCommitStatus(push.State),
		TargetURL:   s.renderer.InstanceURL(inst),
		Description: statusDescription(push.State),
		Context:     "runnable/" + message.CleanName(inst.Name),
	}
	return s.gateway.CreateCommitStatus(ctx, push.Repo, status)
}

func headCommit(push domain.PushEvent, inst domain.Instance) string {
	if len(push.Commits) > 0 {
		return push.Commits[len(push.Commits)-1].ID
	}
	if acv := inst.CurrentContextVersion().MainAppCodeVersion(); acv != nil {
		return acv.Commit
	}
	return ""
}

func statusDescription(state domain.LifecycleState) string {
	switch state {
	case domain.StateBuilding:
		return "Runnable is building your environment"
	case domain.StateRunning:
		return "Your environment is running"
	case domain.StateStopped:
		return "Your environment has stopped"
	case domain.StateFailed:
		return "Your environment failed to build"
	default:
		return "Environment status unknown"
	}
}

func validatePushJob(payload domain.PushJob) error {
	switch {
	case payload.PushInfo.Repo == "":
		return errors.New("push job missing pushInfo.repo")
	case payload.PushInfo.Branch == "":
		return errors.New("push job missing pushInfo.branch")
	case payload.Instance.ID == "":
		return errors.New("push job missing instance.id")
	case payload.Instance.Owner.Github == 0:
		return errors.New("push job missing instance.owner.github")
	}
	return nil
}

func buildPushEvent(payload domain.PushJob) domain.PushEvent {
	commits := make([]domain.Commit, 0, len(payload.PushInfo.Commits))
	for _, c := range payload.PushInfo.Commits {
		commits = append(commits, domain.Commit{
			ID:      c.ID,
			Message: c.Message,
			URL:     c.URL,
			Author:  c.Author.Username,
		})
	}
	return domain.PushEvent{
		Repo:     payload.PushInfo.Repo,
		Branch:   payload.PushInfo.Branch,
		PRNumber: payload.PushInfo.Number,
		State:    domain.ParseLifecycleState(payload.PushInfo.State),
		Commits:  commits,
	}
}
