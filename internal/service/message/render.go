package message

import (
	"strings"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
)

// Status icons shown next to the "Deployed" lead-in. Unknown states fall
// back to the failed icon.
const (
	iconBuilding = "https://cdn.runnable.io/icons/building.png"
	iconRunning  = "https://cdn.runnable.io/icons/running.png"
	iconStopped  = "https://cdn.runnable.io/icons/stopped.png"
	iconFailed   = "https://cdn.runnable.io/icons/failed.png"
)

// Renderer builds deterministic markdown bodies for bot comments. Identical
// inputs always produce byte-identical output; the reconciler relies on that
// to skip redundant comment updates.
type Renderer struct {
	UserContentDomain string
	WebHost           string
}

// New returns a Renderer for the given user-content domain and web host.
func New(userContentDomain, webHost string) Renderer {
	return Renderer{
		UserContentDomain: strings.TrimPrefix(userContentDomain, "."),
		WebHost:           strings.TrimRight(webHost, "/"),
	}
}

// Render produces the full comment body for a push against an instance.
func (r Renderer) Render(push domain.PushEvent, inst domain.Instance, siblings []domain.Instance) string {
	var b strings.Builder
	b.WriteString("Deployed ")
	b.WriteString("![")
	b.WriteString(stateLabel(push.State))
	b.WriteString("](")
	b.WriteString(stateIcon(push.State))
	b.WriteString(") ")
	b.WriteString("[")
	b.WriteString(containerLabel(push))
	b.WriteString("](")
	b.WriteString(r.ContainerURL(inst))
	b.WriteString("). ")
	b.WriteString("[View on Runnable](")
	b.WriteString(r.InstanceURL(inst))
	b.WriteString(").")
	b.WriteString("\n\n")
	b.WriteString(r.footer(siblings))
	return b.String()
}

// ContainerURL is the direct URL of the instance's running container.
func (r Renderer) ContainerURL(inst domain.Instance) string {
	return "http://" + r.Hostname(inst) + defaultPortSuffix(inst.CurrentContainer().Ports)
}

// InstanceURL is the instance page on the web app.
func (r Renderer) InstanceURL(inst domain.Instance) string {
	return r.WebHost + "/" + inst.Owner.Username + "/" + CleanName(inst.Name)
}

// Hostname derives the user-content hostname for an instance. Master pods
// carry the short content hash prefix so every branch deploy gets a stable,
// unique name.
func (r Renderer) Hostname(inst domain.Instance) string {
	parts := make([]string, 0, 4)
	if inst.MasterPod && inst.ShortHash != "" {
		parts = append(parts, inst.ShortHash)
	}
	parts = append(parts, inst.Name, "staging", inst.Owner.Username)
	return strings.ToLower(strings.Join(parts, "-")) + "." + r.UserContentDomain
}

func (r Renderer) footer(siblings []domain.Instance) string {
	attribution := "From [Runnable](" + r.WebHost + ")"
	if len(siblings) == 0 {
		return "<sub>" + attribution + "</sub>"
	}
	links := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		links = append(links, "["+CleanName(sib.Name)+"]("+r.ContainerURL(sib)+")")
	}
	return "<sub>Related containers: " + strings.Join(links, ", ") + "\n" + attribution + "</sub>"
}

// CleanName strips the short-hash prefix isolation adds to instance names.
// "ga71a12--api" becomes "api"; names without the separator pass through.
func CleanName(name string) string {
	if _, after, found := strings.Cut(name, "--"); found {
		return after
	}
	return name
}

// containerLabel is "<repo name>/<branch>" for the pushed branch.
func containerLabel(push domain.PushEvent) string {
	repo := push.Repo
	if _, after, found := strings.Cut(repo, "/"); found {
		repo = after
	}
	return repo + "/" + push.Branch
}

// defaultPortSuffix picks the port suffix for a container URL. Transport
// suffixes like "/tcp" are stripped; port 80 needs no suffix.
func defaultPortSuffix(ports []string) string {
	if len(ports) == 0 {
		return ""
	}
	cleaned := make([]string, 0, len(ports))
	for _, port := range ports {
		p, _, _ := strings.Cut(port, "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return ""
	}
	for _, p := range cleaned {
		if p == "80" {
			return ""
		}
	}
	return ":" + cleaned[0]
}

func stateIcon(state domain.LifecycleState) string {
	switch state {
	case domain.StateBuilding:
		return iconBuilding
	case domain.StateRunning:
		return iconRunning
	case domain.StateStopped:
		return iconStopped
	default:
		return iconFailed
	}
}

func stateLabel(state domain.LifecycleState) string {
	if state == domain.StateUnknown {
		return string(domain.StateFailed)
	}
	return string(state)
}
