// Copyright Contributors to the KubeOpenCode project

//go:build !integration

package controller

import (
	"testing"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
)

func TestClassifyJobSucceeded(t *testing.T) {
	now := metav1.NewTime(time.Unix(0, 0))
	job := &batchv1.Job{Status: batchv1.JobStatus{
		CompletionTime: &now,
		Conditions:     []batchv1.JobCondition{{Type: batchv1.JobComplete, Status: corev1.ConditionTrue}},
	}}

	got := classifyJob(job)
	if got.Phase != orchestratorv1alpha1.RunPhaseSucceeded {
		t.Errorf("expected Succeeded, got %s", got.Phase)
	}
}

func TestClassifyJobFailedConditionMessage(t *testing.T) {
	job := &batchv1.Job{Status: batchv1.JobStatus{
		Conditions: []batchv1.JobCondition{{Type: batchv1.JobFailed, Status: corev1.ConditionTrue, Message: "BackoffLimitExceeded"}},
	}}

	got := classifyJob(job)
	if got.Phase != orchestratorv1alpha1.RunPhaseFailed {
		t.Errorf("expected Failed, got %s", got.Phase)
	}
	if got.Message != "BackoffLimitExceeded" {
		t.Errorf("expected condition message to be carried through, got %q", got.Message)
	}
}

func TestClassifyJobFailedConditionNoMessage(t *testing.T) {
	job := &batchv1.Job{Status: batchv1.JobStatus{
		Conditions: []batchv1.JobCondition{{Type: batchv1.JobFailed, Status: corev1.ConditionTrue}},
	}}

	got := classifyJob(job)
	if got.Message != messageJobFailed {
		t.Errorf("expected stable fallback message %q, got %q", messageJobFailed, got.Message)
	}
}

func TestClassifyJobActiveRemainsRunning(t *testing.T) {
	job := &batchv1.Job{Status: batchv1.JobStatus{Active: 1}}

	got := classifyJob(job)
	if got.Phase != orchestratorv1alpha1.RunPhaseRunning {
		t.Errorf("expected Running, got %s", got.Phase)
	}
}

func TestClassifyJobFailedCount(t *testing.T) {
	job := &batchv1.Job{Status: batchv1.JobStatus{Failed: 1}}

	got := classifyJob(job)
	if got.Phase != orchestratorv1alpha1.RunPhaseFailed {
		t.Errorf("expected Failed, got %s", got.Phase)
	}
}

func TestClassifyJobUnobservableIsPending(t *testing.T) {
	job := &batchv1.Job{}

	got := classifyJob(job)
	if got.Phase != orchestratorv1alpha1.RunPhasePending {
		t.Errorf("expected Pending, got %s", got.Phase)
	}
	if got.Message != messageJobUnknown {
		t.Errorf("expected stable message %q, got %q", messageJobUnknown, got.Message)
	}
}

func TestClassifyJobIsTerminal(t *testing.T) {
	cases := []struct {
		phase    orchestratorv1alpha1.RunPhase
		terminal bool
	}{
		{orchestratorv1alpha1.RunPhasePending, false},
		{orchestratorv1alpha1.RunPhaseRunning, false},
		{orchestratorv1alpha1.RunPhaseSucceeded, true},
		{orchestratorv1alpha1.RunPhaseFailed, true},
	}
	for _, c := range cases {
		got := classification{Phase: c.phase}
		if got.isTerminal() != c.terminal {
			t.Errorf("phase %s: expected isTerminal()=%v", c.phase, c.terminal)
		}
	}
}
