package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
	"github.com/CodeNow/pheidi-sub000/internal/repository"
)

// Repository implements the read-model interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.InstanceRepository = (*Repository)(nil)
	_ repository.UserRepository     = (*Repository)(nil)
)

// GetInstanceByID loads an instance with its containers and build contexts.
func (r *Repository) GetInstanceByID(ctx context.Context, id string) (*domain.Instance, error) {
	const query = `SELECT id, name, short_hash, master_pod, isolation_id, isolated_master, owner_username, owner_github_id
		FROM instances WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// GetInstanceByContainer resolves the instance owning a container.
func (r *Repository) GetInstanceByContainer(ctx context.Context, containerID string) (*domain.Instance, error) {
	const query = `SELECT instance_id FROM instance_containers WHERE container_id = $1`
	var instanceID string
	if err := r.pool.QueryRow(ctx, query, containerID).Scan(&instanceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return r.GetInstanceByID(ctx, instanceID)
}

// ListIsolationSiblings returns the other members of an isolation group.
func (r *Repository) ListIsolationSiblings(ctx context.Context, isolationID, excludeID string) ([]domain.Instance, error) {
	const query = `SELECT id, name, short_hash, master_pod, isolation_id, isolated_master, owner_username, owner_github_id
		FROM instances WHERE isolation_id = $1 AND id <> $2 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, isolationID, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var siblings []domain.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		siblings = append(siblings, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for idx := range siblings {
		if err := r.loadChildren(ctx, &siblings[idx]); err != nil {
			return nil, err
		}
	}
	return siblings, nil
}

// GetUserByGithubID fetches a user by their source-control account id.
func (r *Repository) GetUserByGithubID(ctx context.Context, githubID int64) (*domain.User, error) {
	const query = `SELECT id, github_id, username, email FROM users WHERE github_id = $1`
	row := r.pool.QueryRow(ctx, query, githubID)
	var u domain.User
	if err := row.Scan(&u.ID, &u.GithubID, &u.Username, &u.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListOrgBillingEmails returns billing contact addresses for an org.
func (r *Repository) ListOrgBillingEmails(ctx context.Context, orgID int64) ([]string, error) {
	const query = `SELECT email FROM org_billing_contacts WHERE org_id = $1 ORDER BY email`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*domain.Instance, error) {
	var inst domain.Instance
	var isolationID *string
	if err := row.Scan(&inst.ID, &inst.Name, &inst.ShortHash, &inst.MasterPod, &isolationID, &inst.IsolatedMaster, &inst.Owner.Username, &inst.Owner.GithubID); err != nil {
		return nil, err
	}
	if isolationID != nil {
		inst.IsolationID = *isolationID
	}
	return &inst, nil
}

func (r *Repository) loadChildren(ctx context.Context, inst *domain.Instance) error {
	containers, err := r.listContainers(ctx, inst.ID)
	if err != nil {
		return err
	}
	inst.Containers = containers

	versions, err := r.listContextVersions(ctx, inst.ID)
	if err != nil {
		return err
	}
	inst.ContextVersions = versions
	return nil
}

func (r *Repository) listContainers(ctx context.Context, instanceID string) ([]domain.Container, error) {
	const query = `SELECT container_id, status, ports FROM instance_containers WHERE instance_id = $1 ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var containers []domain.Container
	for rows.Next() {
		var c domain.Container
		if err := rows.Scan(&c.ID, &c.Status, &c.Ports); err != nil {
			return nil, err
		}
		containers = append(containers, c)
	}
	return containers, rows.Err()
}

func (r *Repository) listContextVersions(ctx context.Context, instanceID string) ([]domain.ContextVersion, error) {
	const query = `SELECT id, failed, completed_at, state FROM context_versions WHERE instance_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []domain.ContextVersion
	for rows.Next() {
		var cv domain.ContextVersion
		if err := rows.Scan(&cv.ID, &cv.Failed, &cv.Completed, &cv.State); err != nil {
			return nil, err
		}
		versions = append(versions, cv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for idx := range versions {
		acvs, err := r.listAppCodeVersions(ctx, versions[idx].ID)
		if err != nil {
			return nil, err
		}
		versions[idx].AppCodeVersions = acvs
	}
	return versions, nil
}

func (r *Repository) listAppCodeVersions(ctx context.Context, contextVersionID string) ([]domain.AppCodeVersion, error) {
	const query = `SELECT repo, branch, commit_sha, additional_repo FROM app_code_versions WHERE context_version_id = $1 ORDER BY additional_repo, repo`
	rows, err := r.pool.Query(ctx, query, contextVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acvs []domain.AppCodeVersion
	for rows.Next() {
		var acv domain.AppCodeVersion
		if err := rows.Scan(&acv.Repo, &acv.Branch, &acv.Commit, &acv.AdditionalRepo); err != nil {
			return nil, err
		}
		acvs = append(acvs, acv)
	}
	return acvs, rows.Err()
}
