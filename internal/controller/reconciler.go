// Copyright Contributors to the KubeOpenCode project

// Package controller implements the reconcile loop, status monitor, and
// cleanup-branch handling shared by DocsRunReconciler and CodeRunReconciler.
// The two reconcilers are thin controller-runtime glue around the shared
// engine in this file.
package controller

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/build"
	"github.com/5dlabs/orchestrator/internal/cleanup"
	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/metrics"
	"github.com/5dlabs/orchestrator/internal/orcherr"
	"github.com/5dlabs/orchestrator/internal/run"
	"github.com/5dlabs/orchestrator/internal/template"
)

// RequeuePeriod is the periodic requeue interval that keeps the status
// monitor running even absent events.
const RequeuePeriod = 30

// Engine holds everything the apply/cleanup/monitor operations need, shared
// by both concrete reconcilers and constructed once at startup.
type Engine struct {
	client.Client
	Config           *config.Config
	Renderer         *template.Renderer
	Cleanup          *cleanup.Scheduler
	ToolmanServerURL string
	Namespace        string
}

// applyResult carries the names the caller patches onto the Run's status.
type applyResult struct {
	JobName    string
	BundleName string
}

// apply materializes r's child resources, in order:
// ensure workspace (code only) -> supersede -> render -> create bundle ->
// create job -> patch bundle owner.
func (e *Engine) apply(ctx context.Context, r run.Run) (applyResult, error) {
	kind := runKind(r)

	if _, ok := r.TaskID(); ok {
		if err := e.ensureWorkspace(ctx, r); err != nil {
			return applyResult{}, fmt.Errorf("ensuring workspace volume: %w", err)
		}
	}

	count, err := build.Supersede(ctx, e.Client, r, e.Namespace)
	if err != nil {
		return applyResult{}, fmt.Errorf("superseding prior versions: %w", err)
	}
	if count.Jobs > 0 {
		metrics.SupersessionsTotal.WithLabelValues("job").Add(float64(count.Jobs))
	}
	if count.Bundles > 0 {
		metrics.SupersessionsTotal.WithLabelValues("bundle").Add(float64(count.Bundles))
	}

	files, err := e.Renderer.Render(r, e.Config)
	if err != nil {
		return applyResult{}, fmt.Errorf("%w: %v", orcherr.ErrConfiguration, err)
	}

	bundleName := build.BundleName(r)
	bundle, err := e.ensureBundle(ctx, r, bundleName, files)
	if err != nil {
		return applyResult{}, fmt.Errorf("creating config bundle: %w", err)
	}

	workspaceVolumeName := ""
	if _, ok := r.TaskID(); ok {
		workspaceVolumeName = build.WorkspaceVolumeName(r.ServiceName())
	}

	job, err := e.ensureJob(ctx, r, bundleName, workspaceVolumeName)
	if err != nil {
		return applyResult{}, fmt.Errorf("creating batch job: %w", err)
	}
	metrics.JobsCreatedTotal.WithLabelValues(kind).Inc()

	if err := e.patchBundleOwner(ctx, bundle, job); err != nil {
		return applyResult{}, fmt.Errorf("patching config bundle owner reference: %w", err)
	}

	return applyResult{JobName: job.Name, BundleName: bundle.Name}, nil
}

func (e *Engine) ensureWorkspace(ctx context.Context, r run.Run) error {
	name := build.WorkspaceVolumeName(r.ServiceName())
	var existing corev1.PersistentVolumeClaim
	err := e.Get(ctx, client.ObjectKey{Name: name, Namespace: e.Namespace}, &existing)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}

	pvc := build.BuildWorkspaceVolume(r, e.Namespace, e.Config)
	if err := e.Create(ctx, pvc); err != nil && !apierrors.IsAlreadyExists(err) {
		return err
	}
	return nil
}

func (e *Engine) ensureBundle(ctx context.Context, r run.Run, name string, files map[string]string) (*corev1.ConfigMap, error) {
	bundle := build.BuildBundle(r, e.Namespace, name, files)
	if err := e.Create(ctx, bundle); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return nil, err
		}
		var existing corev1.ConfigMap
		if err := e.Get(ctx, client.ObjectKey{Name: name, Namespace: e.Namespace}, &existing); err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return bundle, nil
}

func (e *Engine) ensureJob(ctx context.Context, r run.Run, bundleName, workspaceVolumeName string) (*batchv1.Job, error) {
	job := build.BuildJob(r, e.Namespace, e.Config, build.JobInputs{
		BundleName:          bundleName,
		WorkspaceVolumeName: workspaceVolumeName,
		ToolmanServerURL:    e.ToolmanServerURL,
	})
	if err := e.Create(ctx, job); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return nil, err
		}
		var existing batchv1.Job
		if err := e.Get(ctx, client.ObjectKey{Name: job.Name, Namespace: e.Namespace}, &existing); err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return job, nil
}

func (e *Engine) patchBundleOwner(ctx context.Context, bundle *corev1.ConfigMap, job *batchv1.Job) error {
	ownerRef := metav1.OwnerReference{
		APIVersion:         batchv1.SchemeGroupVersion.String(),
		Kind:               "Job",
		Name:               job.Name,
		UID:                job.UID,
		Controller:         boolPtr(true),
		BlockOwnerDeletion: boolPtr(true),
	}
	build.PatchBundleOwner(bundle, ownerRef)
	return e.Update(ctx, bundle)
}

func boolPtr(v bool) *bool { return &v }

// cleanupChildren deletes every job and bundle bearing r's selector, used
// by the finalizer-driven deletion branch.
func (e *Engine) cleanupChildren(ctx context.Context, r run.Run) error {
	selector, err := labelSelectorFromString(build.CleanupSelector(r))
	if err != nil {
		return err
	}

	var jobs batchv1.JobList
	if err := e.List(ctx, &jobs, client.InNamespace(e.Namespace), selector); err != nil {
		return fmt.Errorf("listing jobs for cleanup: %w", err)
	}
	background := metav1.DeletePropagationBackground
	for i := range jobs.Items {
		if err := e.Delete(ctx, &jobs.Items[i], &client.DeleteOptions{PropagationPolicy: &background}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting job %s: %w", jobs.Items[i].Name, err)
		}
	}

	var bundles corev1.ConfigMapList
	if err := e.List(ctx, &bundles, client.InNamespace(e.Namespace), selector); err != nil {
		return fmt.Errorf("listing config bundles for cleanup: %w", err)
	}
	foreground := metav1.DeletePropagationForeground
	for i := range bundles.Items {
		if err := e.Delete(ctx, &bundles.Items[i], &client.DeleteOptions{PropagationPolicy: &foreground}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting config bundle %s: %w", bundles.Items[i].Name, err)
		}
	}

	return nil
}

// monitor fetches jobName, classifies its status, and arms deferred cleanup
// on a terminal transition. Callers only invoke this while
// the run's current phase is Running.
func (e *Engine) monitor(ctx context.Context, r run.Run, jobName string) (classification, error) {
	var job batchv1.Job
	if err := e.Get(ctx, client.ObjectKey{Name: jobName, Namespace: e.Namespace}, &job); err != nil {
		if apierrors.IsNotFound(err) {
			return classification{Phase: orchestratorv1alpha1.RunPhasePending, Message: messageJobUnknown}, nil
		}
		return classification{}, err
	}

	result := classifyJob(&job)

	if result.isTerminal() && e.Config.Cleanup.Enabled {
		delayMinutes := e.Config.Cleanup.CompletedJobDelayMinutes
		phaseLabel := "succeeded"
		if result.Phase == orchestratorv1alpha1.RunPhaseFailed {
			delayMinutes = e.Config.Cleanup.FailedJobDelayMinutes
			phaseLabel = "failed"
		}
		e.Cleanup.Schedule(cleanup.Task{
			JobName:      jobName,
			Namespace:    e.Namespace,
			RunName:      r.Name(),
			DeleteBundle: e.Config.Cleanup.DeleteConfigMap,
			Delay:        minutesToDuration(delayMinutes),
		})
		metrics.CleanupsScheduledTotal.WithLabelValues(phaseLabel).Inc()
	}

	return result, nil
}

func runKind(r run.Run) string {
	if r.IsCodeRun() {
		return "code"
	}
	return "docs"
}
