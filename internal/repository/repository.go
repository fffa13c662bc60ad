package repository

import (
	"context"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
)

// InstanceRepository reads the instance documents the worker enriches jobs
// with. Writes happen upstream; this side is read-only.
type InstanceRepository interface {
	GetInstanceByID(ctx context.Context, id string) (*domain.Instance, error)
	// GetInstanceByContainer resolves the instance a container belongs to
	// via the instanceId label producers attach.
	GetInstanceByContainer(ctx context.Context, containerID string) (*domain.Instance, error)
	// ListIsolationSiblings returns the other instances in an isolation
	// group, excluding the given instance.
	ListIsolationSiblings(ctx context.Context, isolationID, excludeID string) ([]domain.Instance, error)
}

// UserRepository resolves platform users for billing notifications.
type UserRepository interface {
	GetUserByGithubID(ctx context.Context, githubID int64) (*domain.User, error)
	// ListOrgBillingEmails returns the email addresses billed for an org.
	ListOrgBillingEmails(ctx context.Context, orgID int64) ([]string, error)
}
