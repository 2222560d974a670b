// Copyright Contributors to the KubeOpenCode project

// Package run provides a unified read-only view over DocsRun and CodeRun,
// so the template renderer, resource builder, and reconcile loop read both
// kinds through one interface; where they differ by kind they ask the view
// (IsCodeRun, TaskID) rather than inspect the CRD types.
package run

import (
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/client"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
)

// Run is the polymorphic view over a DocsRun or CodeRun.
type Run interface {
	// Object returns the underlying CRD instance, for owner-reference wiring
	// and status patching.
	Object() client.Object

	Name() string
	Namespace() string

	// IsCodeRun reports whether this view wraps a CodeRun rather than a DocsRun.
	IsCodeRun() bool

	ServiceName() string
	Model() string
	GithubUser() string
	RepositoryURL() string

	// SourceBranch is only meaningful for docs runs; code runs return "".
	SourceBranch() string

	// WorkingDirectory is resolved once at construction: the explicit spec
	// value if non-empty, otherwise ServiceName.
	WorkingDirectory() string

	// TaskID returns (id, true) for code runs, (0, false) for docs runs.
	TaskID() (int64, bool)

	// ContextVersion is always 1 for docs runs.
	ContextVersion() int32

	// RetryCount is always 0 for docs runs.
	RetryCount() int32

	// SessionID returns (id, true) only when status has recorded one.
	SessionID() (string, bool)

	// PromptModification returns (text, true) only when set and non-empty.
	PromptModification() (string, bool)

	LocalTools() []string
	RemoteTools() []string

	// DocsRepositoryURL returns (url, true) only for code runs.
	DocsRepositoryURL() (string, bool)

	// DocsProjectDirectory returns (dir, true) only when set for a code run.
	DocsProjectDirectory() (string, bool)

	// DocsBranch defaults to "main" for code runs; "" for docs runs (the
	// docs run's own SourceBranch is the analogous field there).
	DocsBranch() string

	// ContinueSession is the disjunction retryCount>0 OR explicit request;
	// always false for docs runs.
	ContinueSession() bool

	// OverwriteMemory is always true for docs runs.
	OverwriteMemory() bool

	Env() map[string]string
	EnvFromSecrets() []orchestratorv1alpha1.EnvVarSecretSource
}

// resolveWorkingDirectory implements the shared fallback rule: explicit wins,
// empty falls back to the service name.
func resolveWorkingDirectory(explicit, serviceName string) string {
	if explicit != "" {
		return explicit
	}
	return serviceName
}

func splitToolList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromDocsRun wraps a DocsRun in the unified view.
func FromDocsRun(obj *orchestratorv1alpha1.DocsRun) Run {
	return &docsView{
		obj:     obj,
		workdir: resolveWorkingDirectory(obj.Spec.WorkingDirectory, "docs-generator"),
	}
}

// FromCodeRun wraps a CodeRun in the unified view.
func FromCodeRun(obj *orchestratorv1alpha1.CodeRun) Run {
	ctxVersion := obj.Spec.ContextVersion
	if ctxVersion <= 0 {
		ctxVersion = 1
	}
	return &codeView{
		obj:     obj,
		workdir: resolveWorkingDirectory(obj.Spec.WorkingDirectory, obj.Spec.ServiceName),
		version: ctxVersion,
	}
}

type docsView struct {
	obj     *orchestratorv1alpha1.DocsRun
	workdir string
}

func (v *docsView) Object() client.Object   { return v.obj }
func (v *docsView) Name() string            { return v.obj.Name }
func (v *docsView) Namespace() string       { return v.obj.Namespace }
func (v *docsView) IsCodeRun() bool         { return false }
func (v *docsView) ServiceName() string     { return "docs-generator" }
func (v *docsView) Model() string           { return v.obj.Spec.Model }
func (v *docsView) GithubUser() string      { return v.obj.Spec.GithubUser }
func (v *docsView) RepositoryURL() string   { return v.obj.Spec.RepositoryURL }
func (v *docsView) SourceBranch() string    { return v.obj.Spec.SourceBranch }
func (v *docsView) WorkingDirectory() string {
	return v.workdir
}
func (v *docsView) TaskID() (int64, bool)              { return 0, false }
func (v *docsView) ContextVersion() int32              { return 1 }
func (v *docsView) RetryCount() int32                  { return 0 }
func (v *docsView) SessionID() (string, bool)          { return "", false }
func (v *docsView) PromptModification() (string, bool) { return "", false }
func (v *docsView) LocalTools() []string               { return nil }
func (v *docsView) RemoteTools() []string              { return nil }
func (v *docsView) DocsRepositoryURL() (string, bool)  { return "", false }
func (v *docsView) DocsProjectDirectory() (string, bool) {
	return "", false
}
func (v *docsView) DocsBranch() string                                         { return "" }
func (v *docsView) ContinueSession() bool                                      { return false }
func (v *docsView) OverwriteMemory() bool                                      { return true }
func (v *docsView) Env() map[string]string                                     { return nil }
func (v *docsView) EnvFromSecrets() []orchestratorv1alpha1.EnvVarSecretSource { return nil }

type codeView struct {
	obj     *orchestratorv1alpha1.CodeRun
	workdir string
	version int32
}

func (v *codeView) Object() client.Object { return v.obj }
func (v *codeView) Name() string          { return v.obj.Name }
func (v *codeView) Namespace() string     { return v.obj.Namespace }
func (v *codeView) IsCodeRun() bool       { return true }
func (v *codeView) ServiceName() string   { return v.obj.Spec.ServiceName }
func (v *codeView) Model() string         { return v.obj.Spec.Model }
func (v *codeView) GithubUser() string    { return v.obj.Spec.GithubUser }
func (v *codeView) RepositoryURL() string { return v.obj.Spec.RepositoryURL }
func (v *codeView) SourceBranch() string  { return "" }
func (v *codeView) WorkingDirectory() string {
	return v.workdir
}

func (v *codeView) TaskID() (int64, bool) { return v.obj.Spec.TaskID, true }
func (v *codeView) ContextVersion() int32 { return v.version }
func (v *codeView) RetryCount() int32     { return v.obj.Status.RetryCount }

func (v *codeView) SessionID() (string, bool) {
	if v.obj.Status.SessionID == nil || *v.obj.Status.SessionID == "" {
		return "", false
	}
	return *v.obj.Status.SessionID, true
}

func (v *codeView) PromptModification() (string, bool) {
	if v.obj.Spec.PromptModification == "" {
		return "", false
	}
	return v.obj.Spec.PromptModification, true
}

func (v *codeView) LocalTools() []string  { return splitToolList(v.obj.Spec.LocalTools) }
func (v *codeView) RemoteTools() []string { return splitToolList(v.obj.Spec.RemoteTools) }

func (v *codeView) DocsRepositoryURL() (string, bool) {
	return v.obj.Spec.DocsRepositoryURL, true
}

func (v *codeView) DocsProjectDirectory() (string, bool) {
	if v.obj.Spec.DocsProjectDirectory == "" {
		return "", false
	}
	return v.obj.Spec.DocsProjectDirectory, true
}

func (v *codeView) DocsBranch() string {
	if v.obj.Spec.DocsBranch == "" {
		return "main"
	}
	return v.obj.Spec.DocsBranch
}

// ContinueSession is the disjunction of an explicit request and a prior retry.
func (v *codeView) ContinueSession() bool {
	return v.obj.Status.RetryCount > 0 || v.obj.Spec.ContinueSession
}

func (v *codeView) OverwriteMemory() bool { return v.obj.Spec.OverwriteMemory }
func (v *codeView) Env() map[string]string { return v.obj.Spec.Env }
func (v *codeView) EnvFromSecrets() []orchestratorv1alpha1.EnvVarSecretSource {
	return v.obj.Spec.EnvFromSecrets
}
