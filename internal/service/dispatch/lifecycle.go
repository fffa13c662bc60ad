package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
	"github.com/CodeNow/pheidi-sub000/internal/queue"
	"github.com/CodeNow/pheidi-sub000/internal/repository"
	"github.com/CodeNow/pheidi-sub000/internal/service/lifecycle"
)

const userContainerType = "user-container"

// handleContainerLifecycle builds the handler for container started/died
// events. Both reconcile the bot comments against the instance's current
// state; a dirty exit additionally fails the deployment status.
func (s Service) handleContainerLifecycle(died bool) queue.Handler {
	return func(ctx context.Context, job queue.Envelope) error {
		payload, err := decode[domain.ContainerJob](job)
		if err != nil {
			return queue.Permanent(fmt.Errorf("malformed container job: %w", err))
		}
		if payload.ID == "" {
			return queue.Permanent(errors.New("container job missing id"))
		}
		labels := payload.InspectData.Config.Labels
		if labels[domain.LabelContainerType] != userContainerType {
			s.logger.Debug("ignoring non-user container", "container_id", payload.ID, "type", labels[domain.LabelContainerType])
			return nil
		}

		inst, err := s.resolveInstance(ctx, labels[domain.LabelInstanceID], payload.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("no instance for container, skipping", "container_id", payload.ID, "job_id", job.ID)
				return nil
			}
			return err
		}

		push, ok := s.pushEventForInstance(*inst)
		if !ok {
			s.logger.Warn("instance has no primary checkout, skipping", "instance", inst.Name, "job_id", job.ID)
			return nil
		}
		if died && payload.InspectData.State.ExitCode != 0 {
			push.State = domain.StateFailed
		}
		if push.State == domain.StateUnknown {
			s.logger.Info("lifecycle state undeterminable, skipping notification", "instance", inst.Name)
			return nil
		}

		return s.notifyInstance(ctx, push, *inst, job.ID)
	}
}

// HandleInstanceUpdated re-reconciles comments after an instance change.
func (s Service) HandleInstanceUpdated(ctx context.Context, job queue.Envelope) error {
	payload, err := decode[domain.InstanceJob](job)
	if err != nil {
		return queue.Permanent(fmt.Errorf("malformed instance job: %w", err))
	}
	if payload.Instance.ID == "" {
		return queue.Permanent(errors.New("instance job missing instance.id"))
	}

	inst, err := s.instances.GetInstanceByID(ctx, payload.Instance.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("updated instance gone, skipping", "instance_id", payload.Instance.ID, "job_id", job.ID)
			return nil
		}
		return err
	}

	push, ok := s.pushEventForInstance(*inst)
	if !ok || push.State == domain.StateUnknown {
		s.logger.Debug("instance not notifiable", "instance", inst.Name, "job_id", job.ID)
		return nil
	}
	return s.notifyInstance(ctx, push, *inst, job.ID)
}

// HandleInstanceDeleted removes the bot comments for a deleted instance.
// The store record is usually gone by now, so the branch comes from the
// payload's build contexts.
func (s Service) HandleInstanceDeleted(ctx context.Context, job queue.Envelope) error {
	payload, err := decode[domain.InstanceJob](job)
	if err != nil {
		return queue.Permanent(fmt.Errorf("malformed instance job: %w", err))
	}
	repo, branch, ok := payload.Instance.MainRepoBranch()
	if !ok {
		s.logger.Debug("deleted instance had no primary checkout, nothing to clean", "instance_id", payload.Instance.ID)
		return nil
	}

	push := domain.PushEvent{Repo: repo, Branch: branch}
	if err := s.reconciler.DeleteAllForBranch(ctx, push); err != nil {
		return s.consumeGatewayError(err, "repo", repo, "branch", branch, "job_id", job.ID)
	}
	s.logger.Info("comments cleaned for deleted instance", "repo", repo, "branch", branch, "instance_id", payload.Instance.ID)
	return nil
}

// notifyInstance runs the comment upsert and deployment status write for an
// instance-derived push event, mapping gateway errors exactly once.
func (s Service) notifyInstance(ctx context.Context, push domain.PushEvent, inst domain.Instance, jobID string) error {
	siblings, err := s.resolveSiblings(ctx, inst)
	if err != nil {
		return err
	}

	org := inst.Owner.Username
	if s.cfg.EnablePRComments {
		if err := s.reconciler.UpsertAllForBranch(ctx, push, inst, siblings); err != nil {
			return s.consumeGatewayError(err, "org", org, "job_id", jobID)
		}
	}
	if err := s.writeDeploymentStatus(ctx, push, inst); err != nil {
		return s.consumeGatewayError(err, "org", org, "job_id", jobID)
	}
	s.publishOutcome(org, QueueInstanceUpdated, push.Repo, push.Branch, push.State)
	return nil
}

// pushEventForInstance derives a push event from the instance's primary
// checkout and classified state. ok is false without a primary checkout.
func (s Service) pushEventForInstance(inst domain.Instance) (domain.PushEvent, bool) {
	cv := inst.CurrentContextVersion()
	acv := cv.MainAppCodeVersion()
	if acv == nil {
		return domain.PushEvent{}, false
	}
	return domain.PushEvent{
		Repo:   acv.Repo,
		Branch: acv.Branch,
		State:  lifecycle.Classify(cv, inst.CurrentContainer()),
	}, true
}

// resolveInstance prefers the instanceId label and falls back to the
// container id mapping.
func (s Service) resolveInstance(ctx context.Context, instanceID, containerID string) (*domain.Instance, error) {
	if instanceID != "" {
		inst, err := s.instances.GetInstanceByID(ctx, instanceID)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return inst, err
		}
	}
	return s.instances.GetInstanceByContainer(ctx, containerID)
}
