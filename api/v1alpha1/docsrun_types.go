// Copyright Contributors to the KubeOpenCode project

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// DocsRunSpec defines a request to generate documentation for a repository.
// DocsRun never retries and never carries a task id: each generation attempt
// is a fresh, one-shot job.
type DocsRunSpec struct {
	// RepositoryURL is the Git repository to generate documentation for.
	// +kubebuilder:validation:Required
	RepositoryURL string `json:"repositoryUrl"`

	// WorkingDirectory is the subdirectory within the repository to operate on.
	// +optional
	WorkingDirectory string `json:"workingDirectory,omitempty"`

	// SourceBranch is the branch to check out before generating documentation.
	// +optional
	SourceBranch string `json:"sourceBranch,omitempty"`

	// Model selects the agent model identifier. It is passed to the job and
	// templates as given; the controller applies no default when it is empty.
	// +optional
	Model string `json:"model,omitempty"`

	// GithubUser is the identity used to resolve credential secrets and to
	// attribute the generated commit/PR.
	// +kubebuilder:validation:Required
	GithubUser string `json:"githubUser"`
}

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope="Namespaced",shortName=dr
// +kubebuilder:printcolumn:JSONPath=`.status.phase`,name="Phase",type=string
// +kubebuilder:printcolumn:JSONPath=`.metadata.creationTimestamp`,name="Age",type=date

// DocsRun represents a single documentation-generation run.
type DocsRun struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// Spec defines the desired documentation run.
	Spec DocsRunSpec `json:"spec"`

	// Status represents the observed state of the run.
	// +optional
	Status RunStatus `json:"status,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true

// DocsRunList contains a list of DocsRun.
type DocsRunList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DocsRun `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DocsRun{}, &DocsRunList{})
}

func (in *DocsRunSpec) DeepCopyInto(out *DocsRunSpec) {
	*out = *in
}

func (in *DocsRunSpec) DeepCopy() *DocsRunSpec {
	if in == nil {
		return nil
	}
	out := new(DocsRunSpec)
	in.DeepCopyInto(out)
	return out
}

func (in *DocsRun) DeepCopyInto(out *DocsRun) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	out.Spec = in.Spec
	in.Status.DeepCopyInto(&out.Status)
}

func (in *DocsRun) DeepCopy() *DocsRun {
	if in == nil {
		return nil
	}
	out := new(DocsRun)
	in.DeepCopyInto(out)
	return out
}

func (in *DocsRun) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

func (in *DocsRunList) DeepCopyInto(out *DocsRunList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]DocsRun, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (in *DocsRunList) DeepCopy() *DocsRunList {
	if in == nil {
		return nil
	}
	out := new(DocsRunList)
	in.DeepCopyInto(out)
	return out
}

func (in *DocsRunList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
