// Copyright Contributors to the KubeOpenCode project

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RunPhase represents the current phase of a Run (DocsRun or CodeRun).
// +kubebuilder:validation:Enum=Pending;Running;Succeeded;Failed
type RunPhase string

const (
	// RunPhasePending means the backing job has not been observed yet.
	RunPhasePending RunPhase = "Pending"
	// RunPhaseRunning means the backing job is active.
	RunPhaseRunning RunPhase = "Running"
	// RunPhaseSucceeded means the backing job completed successfully.
	RunPhaseSucceeded RunPhase = "Succeeded"
	// RunPhaseFailed means the backing job terminated unsuccessfully.
	RunPhaseFailed RunPhase = "Failed"
)

const (
	// ConditionTypeReady is the condition type reported on both Run kinds.
	ConditionTypeReady = "Ready"

	// ReasonJobRunning is the Ready=False reason while the job is still active.
	ReasonJobRunning = "JobRunning"
	// ReasonJobSucceeded is the Ready=True reason once the job completed.
	ReasonJobSucceeded = "JobSucceeded"
	// ReasonJobFailed is the Ready=False reason once the job terminated unsuccessfully.
	ReasonJobFailed = "JobFailed"
	// ReasonJobPending is the Ready=False reason before the job's status is observable.
	ReasonJobPending = "JobPending"
)

// RunStatus defines the observed state shared by DocsRun and CodeRun.
type RunStatus struct {
	// Phase is the current lifecycle phase.
	// +optional
	Phase RunPhase `json:"phase,omitempty"`

	// Message is a human-readable status summary.
	// +optional
	Message string `json:"message,omitempty"`

	// LastUpdateTime records when the status was last recomputed.
	// +optional
	LastUpdateTime *metav1.Time `json:"lastUpdateTime,omitempty"`

	// JobName is the name of the backing batch Job, once created.
	// +optional
	JobName string `json:"jobName,omitempty"`

	// ConfigBundleName is the name of the rendered ConfigMap, once created.
	// +optional
	ConfigBundleName string `json:"configBundleName,omitempty"`

	// PullRequestURL is set by the agent's output, when one was opened.
	// +optional
	PullRequestURL *string `json:"pullRequestUrl,omitempty"`

	// Conditions holds the standard Kubernetes conditions, including Ready.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

func (in *RunStatus) DeepCopyInto(out *RunStatus) {
	*out = *in
	if in.LastUpdateTime != nil {
		out.LastUpdateTime = in.LastUpdateTime.DeepCopy()
	}
	if in.PullRequestURL != nil {
		v := *in.PullRequestURL
		out.PullRequestURL = &v
	}
	if in.Conditions != nil {
		out.Conditions = make([]metav1.Condition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&out.Conditions[i])
		}
	}
}

// EnvVarSecretSource references a single key in a Secret to mount as an
// environment variable on the agent container.
type EnvVarSecretSource struct {
	// Name is the environment variable name exposed in the container.
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// SecretName is the Secret to read from.
	// +kubebuilder:validation:Required
	SecretName string `json:"secretName"`
	// SecretKey is the key within the Secret.
	// +kubebuilder:validation:Required
	SecretKey string `json:"secretKey"`
}

func (in *EnvVarSecretSource) DeepCopyInto(out *EnvVarSecretSource) {
	*out = *in
}

func (in *EnvVarSecretSource) DeepCopy() *EnvVarSecretSource {
	if in == nil {
		return nil
	}
	out := new(EnvVarSecretSource)
	in.DeepCopyInto(out)
	return out
}
