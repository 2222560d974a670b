// Copyright Contributors to the KubeOpenCode project

package build

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/5dlabs/orchestrator/internal/labels"
	"github.com/5dlabs/orchestrator/internal/run"
)

// SupersessionCount reports how many jobs and bundles Supersede deleted, so
// callers can surface it as a metric without Supersede itself depending on
// the metrics package.
type SupersessionCount struct {
	Jobs    int
	Bundles int
}

// Supersede deletes every job and config bundle bearing r's task id and a
// context version strictly lower than r's, per the at-most-one-live-version
// invariant. Docs runs pin to version 1 and never supersede
// anything; this is a no-op for them.
//
// Jobs are deleted with background propagation (the running pod is allowed
// to terminate on its own); bundles are deleted with foreground propagation
// (the bundle disappears immediately once nothing references it), mirroring
// crontask_controller.go's history-limit cleanup sweep.
func Supersede(ctx context.Context, c client.Client, r run.Run, namespace string) (SupersessionCount, error) {
	var count SupersessionCount

	taskID, ok := r.TaskID()
	if !ok {
		return count, nil
	}

	selector := client.MatchingLabels{labels.AppLabel: labels.AppLabelValue, labels.TaskIDLabel: fmt.Sprintf("%d", taskID)}
	currentVersion := r.ContextVersion()

	var jobs batchv1.JobList
	if err := c.List(ctx, &jobs, client.InNamespace(namespace), selector); err != nil {
		return count, fmt.Errorf("listing jobs for supersession: %w", err)
	}
	background := metav1.DeletePropagationBackground
	for i := range jobs.Items {
		job := &jobs.Items[i]
		if v, ok := labels.ParseContextVersion(job.Labels[labels.ContextVersionLabel]); ok && v < currentVersion {
			if err := c.Delete(ctx, job, &client.DeleteOptions{PropagationPolicy: &background}); err != nil && !apierrors.IsNotFound(err) {
				return count, fmt.Errorf("deleting superseded job %s: %w", job.Name, err)
			}
			count.Jobs++
		}
	}

	var bundles corev1.ConfigMapList
	if err := c.List(ctx, &bundles, client.InNamespace(namespace), selector); err != nil {
		return count, fmt.Errorf("listing config bundles for supersession: %w", err)
	}
	foreground := metav1.DeletePropagationForeground
	for i := range bundles.Items {
		bundle := &bundles.Items[i]
		if v, ok := labels.ParseContextVersion(bundle.Labels[labels.ContextVersionLabel]); ok && v < currentVersion {
			if err := c.Delete(ctx, bundle, &client.DeleteOptions{PropagationPolicy: &foreground}); err != nil && !apierrors.IsNotFound(err) {
				return count, fmt.Errorf("deleting superseded bundle %s: %w", bundle.Name, err)
			}
			count.Bundles++
		}
	}

	return count, nil
}
