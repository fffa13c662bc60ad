package domain

// Inbound job payload shapes. These mirror what the upstream producers put
// on the queue; the dispatcher validates them before acting.

// PushJob is the payload of a github.bot.notify job.
type PushJob struct {
	PushInfo PushInfo    `json:"pushInfo"`
	Instance JobInstance `json:"instance"`
}

// PushInfo carries the code-push portion of a PushJob.
type PushInfo struct {
	Repo    string      `json:"repo"`
	Branch  string      `json:"branch"`
	State   string      `json:"state"`
	Number  int         `json:"number"`
	Commits []JobCommit `json:"commitLog"`
}

// JobCommit is one commit entry in a push payload.
type JobCommit struct {
	ID      string          `json:"id"`
	Message string          `json:"message"`
	URL     string          `json:"url"`
	Author  JobCommitAuthor `json:"author"`
}

// JobCommitAuthor names the author of a pushed commit.
type JobCommitAuthor struct {
	Username string `json:"username"`
}

// JobInstance references the instance a job concerns. The identifier and
// owner are what the worker trusts; the record is re-read from the store
// when it still exists.
type JobInstance struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Owner           JobInstanceOwner    `json:"owner"`
	ContextVersions []JobContextVersion `json:"contextVersions"`
}

// MainRepoBranch returns the primary checkout's repo and branch from the
// payload's build contexts, skipping additional repos.
func (ji JobInstance) MainRepoBranch() (repo, branch string, ok bool) {
	for _, cv := range ji.ContextVersions {
		for _, acv := range cv.AppCodeVersions {
			if acv.AdditionalRepo {
				continue
			}
			return acv.Repo, acv.Branch, true
		}
	}
	return "", "", false
}

// JobContextVersion mirrors the build-context subset producers attach.
type JobContextVersion struct {
	AppCodeVersions []JobAppCodeVersion `json:"appCodeVersions"`
}

// JobAppCodeVersion is a source-control reference in a job payload.
type JobAppCodeVersion struct {
	Repo           string `json:"repo"`
	Branch         string `json:"branch"`
	Commit         string `json:"commit"`
	AdditionalRepo bool   `json:"additionalRepo"`
}

// JobInstanceOwner identifies the instance owner in a job payload.
type JobInstanceOwner struct {
	Github   int64  `json:"github"`
	Username string `json:"username"`
}

// ContainerJob is the payload of container.life-cycle.started/died jobs.
type ContainerJob struct {
	ID          string               `json:"id"`
	InspectData ContainerInspectData `json:"inspectData"`
}

// ContainerInspectData is the docker inspect subset producers attach.
type ContainerInspectData struct {
	Config ContainerConfig `json:"Config"`
	State  ContainerState  `json:"State"`
}

// ContainerConfig carries the labels the worker routes on.
type ContainerConfig struct {
	Labels map[string]string `json:"Labels"`
}

// ContainerState is the exit portion of docker inspect output.
type ContainerState struct {
	ExitCode int    `json:"ExitCode"`
	Error    string `json:"Error"`
}

// Container labels the worker reads.
const (
	LabelContainerType = "type"
	LabelInstanceID    = "instanceId"
)

// InstanceJob is the payload of instance.updated/deleted jobs.
type InstanceJob struct {
	Instance JobInstance `json:"instance"`
}

// OrganizationJob is the payload of organization.* billing and user jobs.
type OrganizationJob struct {
	Organization       Organization `json:"organization"`
	PaymentMethodOwner *OrgUser     `json:"paymentMethodOwner,omitempty"`
	User               *OrgUser     `json:"user,omitempty"`
}

// Organization identifies the org a billing event concerns.
type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OrgUser references a user in an organization job payload.
type OrgUser struct {
	ID       int64 `json:"id"`
	GithubID int64 `json:"githubId"`
}

// User is the document-store record for a platform user.
type User struct {
	ID       string
	GithubID int64
	Username string
	Email    string
}
