// Copyright Contributors to the KubeOpenCode project

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// CodeRunSpec defines a request to implement a task against a service.
// Unlike DocsRun, a CodeRun may be retried: the submitter increments
// ContextVersion and resubmits, and the controller supersedes the prior
// attempt's resources (see internal/build.Supersede).
type CodeRunSpec struct {
	// TaskID is the integer task identifier from the upstream project-management system.
	// +kubebuilder:validation:Required
	TaskID int64 `json:"taskId"`

	// ServiceName is the target service; must match [a-z0-9-]+.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:Pattern=`^[a-z0-9-]+$`
	ServiceName string `json:"serviceName"`

	// RepositoryURL is the implementation repository to work against.
	// +kubebuilder:validation:Required
	RepositoryURL string `json:"repositoryUrl"`

	// DocsRepositoryURL is the documentation repository providing task context.
	// +kubebuilder:validation:Required
	DocsRepositoryURL string `json:"docsRepositoryUrl"`

	// DocsProjectDirectory is the subdirectory within the docs repository for this task.
	// +optional
	DocsProjectDirectory string `json:"docsProjectDirectory,omitempty"`

	// DocsBranch is the branch of the docs repository to read from.
	// +kubebuilder:default="main"
	// +optional
	DocsBranch string `json:"docsBranch,omitempty"`

	// WorkingDirectory is the subdirectory within the implementation repository.
	// Empty resolves to ServiceName (see internal/run.Run.WorkingDirectory).
	// +optional
	WorkingDirectory string `json:"workingDirectory,omitempty"`

	// Model selects the agent model identifier. It is passed to the job and
	// templates as given; the controller applies no default when it is empty.
	// +optional
	Model string `json:"model,omitempty"`

	// GithubUser is the identity used to resolve credential secrets.
	// +kubebuilder:validation:Required
	GithubUser string `json:"githubUser"`

	// LocalTools is a comma-separated list of locally-available agent tools.
	// +optional
	LocalTools string `json:"localTools,omitempty"`

	// RemoteTools is a comma-separated list of remote (tool-server) agent tools.
	// +optional
	RemoteTools string `json:"remoteTools,omitempty"`

	// ContextVersion drives naming and supersession; it must be non-decreasing
	// across retries of the same TaskID.
	// +kubebuilder:default=1
	// +kubebuilder:validation:Minimum=1
	// +optional
	ContextVersion int32 `json:"contextVersion,omitempty"`

	// PromptModification is extra guidance appended for a retry attempt.
	// +optional
	PromptModification string `json:"promptModification,omitempty"`

	// ContinueSession requests that the agent resume its prior session rather
	// than starting fresh, in addition to the implicit retryCount>0 rule.
	// +optional
	ContinueSession bool `json:"continueSession,omitempty"`

	// OverwriteMemory requests that CLAUDE.md be regenerated rather than preserved.
	// +optional
	OverwriteMemory bool `json:"overwriteMemory,omitempty"`

	// Env is a set of plain environment variables injected into the agent container.
	// +optional
	Env map[string]string `json:"env,omitempty"`

	// EnvFromSecrets is a set of (name, secretName, secretKey) triples injected
	// into the agent container from existing Secrets.
	// +optional
	EnvFromSecrets []EnvVarSecretSource `json:"envFromSecrets,omitempty"`
}

// CodeRunStatus extends RunStatus with code-run-specific retry bookkeeping.
type CodeRunStatus struct {
	RunStatus `json:",inline"`

	// RetryCount is the number of times this (taskId, service) has been
	// superseded and re-run.
	// +optional
	RetryCount int32 `json:"retryCount,omitempty"`

	// SessionID is reserved for future use; no writer currently populates it.
	// +optional
	SessionID *string `json:"sessionId,omitempty"`
}

func (in *CodeRunStatus) DeepCopyInto(out *CodeRunStatus) {
	in.RunStatus.DeepCopyInto(&out.RunStatus)
	out.RetryCount = in.RetryCount
	if in.SessionID != nil {
		v := *in.SessionID
		out.SessionID = &v
	}
}

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope="Namespaced",shortName=cr
// +kubebuilder:printcolumn:JSONPath=`.spec.taskId`,name="Task",type=integer
// +kubebuilder:printcolumn:JSONPath=`.spec.serviceName`,name="Service",type=string
// +kubebuilder:printcolumn:JSONPath=`.spec.model`,name="Model",type=string
// +kubebuilder:printcolumn:JSONPath=`.status.phase`,name="Phase",type=string
// +kubebuilder:printcolumn:JSONPath=`.metadata.creationTimestamp`,name="Age",type=date

// CodeRun represents a single code-implementation run.
type CodeRun struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// Spec defines the desired code-implementation run.
	Spec CodeRunSpec `json:"spec"`

	// Status represents the observed state of the run.
	// +optional
	Status CodeRunStatus `json:"status,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true

// CodeRunList contains a list of CodeRun.
type CodeRunList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []CodeRun `json:"items"`
}

func init() {
	SchemeBuilder.Register(&CodeRun{}, &CodeRunList{})
}

func (in *CodeRunSpec) DeepCopyInto(out *CodeRunSpec) {
	*out = *in
	if in.Env != nil {
		out.Env = make(map[string]string, len(in.Env))
		for k, v := range in.Env {
			out.Env[k] = v
		}
	}
	if in.EnvFromSecrets != nil {
		out.EnvFromSecrets = make([]EnvVarSecretSource, len(in.EnvFromSecrets))
		for i := range in.EnvFromSecrets {
			in.EnvFromSecrets[i].DeepCopyInto(&out.EnvFromSecrets[i])
		}
	}
}

func (in *CodeRunSpec) DeepCopy() *CodeRunSpec {
	if in == nil {
		return nil
	}
	out := new(CodeRunSpec)
	in.DeepCopyInto(out)
	return out
}

func (in *CodeRun) DeepCopyInto(out *CodeRun) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

func (in *CodeRun) DeepCopy() *CodeRun {
	if in == nil {
		return nil
	}
	out := new(CodeRun)
	in.DeepCopyInto(out)
	return out
}

func (in *CodeRun) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

func (in *CodeRunList) DeepCopyInto(out *CodeRunList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]CodeRun, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (in *CodeRunList) DeepCopy() *CodeRunList {
	if in == nil {
		return nil
	}
	out := new(CodeRunList)
	in.DeepCopyInto(out)
	return out
}

func (in *CodeRunList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
