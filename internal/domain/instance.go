package domain

import "time"

// Instance is a deployed environment tied to a code branch. The document
// store owns its lifecycle; the worker only reads it.
type Instance struct {
	ID              string
	Name            string
	Owner           InstanceOwner
	ShortHash       string
	MasterPod       bool
	IsolationID     string
	IsolatedMaster  bool
	Containers      []Container
	ContextVersions []ContextVersion
}

// InstanceOwner identifies the account an instance belongs to.
type InstanceOwner struct {
	Username string
	GithubID int64
}

// CurrentContextVersion returns the most recent build context, or a zero
// value when the instance has none.
func (i Instance) CurrentContextVersion() ContextVersion {
	if len(i.ContextVersions) == 0 {
		return ContextVersion{}
	}
	return i.ContextVersions[0]
}

// CurrentContainer returns the attached container, or a zero value.
func (i Instance) CurrentContainer() Container {
	if len(i.Containers) == 0 {
		return Container{}
	}
	return i.Containers[0]
}

// ContextVersion is one build attempt for an instance.
type ContextVersion struct {
	ID              string
	Failed          bool
	Completed       *time.Time
	State           string
	AppCodeVersions []AppCodeVersion
}

// MainAppCodeVersion returns the primary checkout for this build, skipping
// auxiliary "additional repo" checkouts. Returns nil when none exists.
func (cv ContextVersion) MainAppCodeVersion() *AppCodeVersion {
	for idx := range cv.AppCodeVersions {
		acv := cv.AppCodeVersions[idx]
		if !acv.AdditionalRepo {
			return &acv
		}
	}
	return nil
}

// AppCodeVersion is a source-control reference attached to a build context.
type AppCodeVersion struct {
	Repo           string
	Branch         string
	Commit         string
	AdditionalRepo bool
}

// Container summarizes the container attached to an instance.
type Container struct {
	ID     string
	Status string
	Ports  []string
}

// BuildStateStarted is the context-version state tag set when a build begins.
const BuildStateStarted = "build_started"
