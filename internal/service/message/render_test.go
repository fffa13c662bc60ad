package message

import (
	"strings"
	"testing"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
)

func testRenderer() Renderer {
	return New("runnableapp.com", "https://app.runnable.io")
}

func testInstance() domain.Instance {
	return domain.Instance{
		Name:      "feature-1-hellonode",
		ShortHash: "ga71a12",
		MasterPod: true,
		Owner:     domain.InstanceOwner{Username: "codenow"},
		Containers: []domain.Container{
			{Status: "running", Ports: []string{"3000/tcp", "8080/tcp"}},
		},
	}
}

func TestRenderRunningNoSiblings(t *testing.T) {
	r := testRenderer()
	push := domain.PushEvent{Repo: "codenow/hellonode", Branch: "feature-1", State: domain.StateRunning}

	got := r.Render(push, testInstance(), nil)

	if !strings.HasPrefix(got, "Deployed ") {
		t.Fatalf("expected Deployed prefix, got %q", got)
	}
	wantLink := "[hellonode/feature-1](http://ga71a12-feature-1-hellonode-staging-codenow.runnableapp.com:3000)"
	if !strings.Contains(got, wantLink) {
		t.Fatalf("expected container link %q in %q", wantLink, got)
	}
	if !strings.Contains(got, "[View on Runnable](https://app.runnable.io/codenow/feature-1-hellonode)") {
		t.Fatalf("expected web link, got %q", got)
	}
	if !strings.HasSuffix(got, "<sub>From [Runnable](https://app.runnable.io)</sub>") {
		t.Fatalf("expected no-siblings footer, got %q", got)
	}
	if strings.Contains(got, "Related containers") {
		t.Fatalf("unexpected related containers line: %q", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := testRenderer()
	push := domain.PushEvent{Repo: "codenow/hellonode", Branch: "feature-1", State: domain.StateBuilding}
	inst := testInstance()
	siblings := []domain.Instance{
		{Name: "ga71a12--redis", Owner: domain.InstanceOwner{Username: "codenow"}},
		{Name: "ga71a12--mongo", Owner: domain.InstanceOwner{Username: "codenow"}},
	}

	first := r.Render(push, inst, siblings)
	second := r.Render(push, inst, siblings)
	if first != second {
		t.Fatalf("expected identical renders, got\n%q\n%q", first, second)
	}
}

func TestRenderSiblingFooter(t *testing.T) {
	r := testRenderer()
	push := domain.PushEvent{Repo: "codenow/hellonode", Branch: "feature-1", State: domain.StateRunning}
	siblings := []domain.Instance{
		{Name: "ga71a12--redis", Owner: domain.InstanceOwner{Username: "codenow"}},
		{Name: "ga71a12--mongo", Owner: domain.InstanceOwner{Username: "codenow"}},
	}

	got := r.Render(push, testInstance(), siblings)

	if !strings.Contains(got, "Related containers: ") {
		t.Fatalf("expected related containers line, got %q", got)
	}
	if !strings.Contains(got, "[redis](") || !strings.Contains(got, "[mongo](") {
		t.Fatalf("expected cleaned sibling names, got %q", got)
	}
	if strings.Index(got, "[redis](") > strings.Index(got, "[mongo](") {
		t.Fatalf("expected siblings rendered in input order, got %q", got)
	}
}

func TestRenderUnknownStateUsesFailedIcon(t *testing.T) {
	r := testRenderer()
	push := domain.PushEvent{Repo: "codenow/hellonode", Branch: "feature-1", State: domain.StateUnknown}
	got := r.Render(push, testInstance(), nil)
	if !strings.Contains(got, iconFailed) {
		t.Fatalf("expected failed icon for unknown state, got %q", got)
	}
}

func TestDefaultPortSuffix(t *testing.T) {
	cases := []struct {
		name  string
		ports []string
		want  string
	}{
		{"no ports", nil, ""},
		{"port 80 exposed", []string{"80/tcp", "3000/tcp"}, ""},
		{"first port wins", []string{"3000/tcp", "4000/tcp"}, ":3000"},
		{"no transport suffix", []string{"9090"}, ":9090"},
		{"empty entries ignored", []string{"/tcp"}, ""},
	}
	for _, tc := range cases {
		if got := defaultPortSuffix(tc.ports); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestCleanName(t *testing.T) {
	if got := CleanName("ga71a12--api"); got != "api" {
		t.Fatalf("expected api, got %q", got)
	}
	if got := CleanName("plain-name"); got != "plain-name" {
		t.Fatalf("expected plain-name, got %q", got)
	}
	if got := CleanName("a--b--c"); got != "b--c" {
		t.Fatalf("expected split on first separator, got %q", got)
	}
}

func TestHostnameNonMasterPodOmitsHash(t *testing.T) {
	r := testRenderer()
	inst := testInstance()
	inst.MasterPod = false
	got := r.Hostname(inst)
	want := "feature-1-hellonode-staging-codenow.runnableapp.com"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
