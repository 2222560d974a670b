// Copyright Contributors to the KubeOpenCode project

package controller

import (
	batchv1 "k8s.io/api/batch/v1"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
)

// classification is the pure-function result of inspecting a batch Job's
// status, before it is patched onto a Run's status subresource.
type classification struct {
	Phase   orchestratorv1alpha1.RunPhase
	Message string
}

const (
	messageJobFailed  = "Job failed"
	messageJobUnknown = "Job status unknown"
)

// classifyJob implements the status monitor's phase-projection rule:
// completion timestamp + Complete=True wins first, then a
// Failed=True condition (carrying its message), then active/failed counts,
// defaulting to Pending when nothing is yet observable.
func classifyJob(job *batchv1.Job) classification {
	var failedCondition *batchv1.JobCondition
	completeTrue := false

	for i := range job.Status.Conditions {
		cond := job.Status.Conditions[i]
		switch cond.Type {
		case batchv1.JobComplete:
			if cond.Status == "True" {
				completeTrue = true
			}
		case batchv1.JobFailed:
			if cond.Status == "True" {
				c := job.Status.Conditions[i]
				failedCondition = &c
			}
		}
	}

	if job.Status.CompletionTime != nil && completeTrue {
		return classification{Phase: orchestratorv1alpha1.RunPhaseSucceeded, Message: "Job completed successfully"}
	}

	if failedCondition != nil {
		msg := failedCondition.Message
		if msg == "" {
			msg = messageJobFailed
		}
		return classification{Phase: orchestratorv1alpha1.RunPhaseFailed, Message: msg}
	}

	if job.Status.Active > 0 {
		return classification{Phase: orchestratorv1alpha1.RunPhaseRunning, Message: "Job is active"}
	}

	if job.Status.Failed > 0 {
		return classification{Phase: orchestratorv1alpha1.RunPhaseFailed, Message: messageJobFailed}
	}

	return classification{Phase: orchestratorv1alpha1.RunPhasePending, Message: messageJobUnknown}
}

func (c classification) isTerminal() bool {
	return c.Phase == orchestratorv1alpha1.RunPhaseSucceeded || c.Phase == orchestratorv1alpha1.RunPhaseFailed
}
