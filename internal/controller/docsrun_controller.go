// Copyright Contributors to the KubeOpenCode project

package controller

import (
	"context"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/metrics"
	"github.com/5dlabs/orchestrator/internal/run"
)

// docsRunFinalizer keeps a DocsRun alive until its children have been
// explicitly released.
const docsRunFinalizer = "docsruns.orchestrator.io/finalizer"

// DocsRunReconciler reconciles a DocsRun object. It is a thin
// controller-runtime wrapper around the shared engine in reconciler.go.
type DocsRunReconciler struct {
	Engine
	Scheme *runtime.Scheme
}

// +kubebuilder:rbac:groups=orchestrator.platform,resources=docsruns,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=orchestrator.platform,resources=docsruns/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=orchestrator.platform,resources=docsruns/finalizers,verbs=update
// +kubebuilder:rbac:groups=batch,resources=jobs,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=configmaps,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch

// Reconcile drives a single DocsRun through its lifecycle: finalizer
// installation, child-resource materialization, and status monitoring.
func (r *DocsRunReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	var obj orchestratorv1alpha1.DocsRun
	if err := r.Get(ctx, req.NamespacedName, &obj); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if !obj.DeletionTimestamp.IsZero() {
		return r.reconcileDeletion(ctx, &obj)
	}

	if !controllerutil.ContainsFinalizer(&obj, docsRunFinalizer) {
		controllerutil.AddFinalizer(&obj, docsRunFinalizer)
		if err := r.Update(ctx, &obj); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	view := run.FromDocsRun(&obj)

	if obj.Status.Phase == "" {
		result, err := r.apply(ctx, view)
		if err != nil {
			metrics.ReconcilesTotal.WithLabelValues("docs", "error").Inc()
			logger.Error(err, "applying DocsRun")
			return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
		}

		setRunningStatus(&obj.Status, result)
		if err := r.Status().Update(ctx, &obj); err != nil {
			logger.Error(err, "patching DocsRun status to Running")
			return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
		}
		metrics.ReconcilesTotal.WithLabelValues("docs", "applied").Inc()
		return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
	}

	if obj.Status.Phase == orchestratorv1alpha1.RunPhaseRunning {
		if err := r.tick(ctx, &obj, view); err != nil {
			logger.Error(err, "monitoring DocsRun status")
		}
	}

	return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
}

func (r *DocsRunReconciler) tick(ctx context.Context, obj *orchestratorv1alpha1.DocsRun, view run.Run) error {
	result, err := r.monitor(ctx, view, obj.Status.JobName)
	if err != nil {
		return err
	}
	if result.Phase == obj.Status.Phase && result.Message == obj.Status.Message {
		return nil
	}
	applyClassification(&obj.Status, result)
	if err := r.Status().Update(ctx, obj); err != nil {
		return err
	}
	return nil
}

func (r *DocsRunReconciler) reconcileDeletion(ctx context.Context, obj *orchestratorv1alpha1.DocsRun) (ctrl.Result, error) {
	if controllerutil.ContainsFinalizer(obj, docsRunFinalizer) {
		if err := r.cleanupChildren(ctx, run.FromDocsRun(obj)); err != nil {
			return ctrl.Result{}, err
		}
		controllerutil.RemoveFinalizer(obj, docsRunFinalizer)
		if err := r.Update(ctx, obj); err != nil {
			return ctrl.Result{}, err
		}
	}
	return ctrl.Result{}, nil
}

// setRunningStatus and applyClassification are shared by both reconcilers
// via the RunStatus they both embed.

func setRunningStatus(status *orchestratorv1alpha1.RunStatus, result applyResult) {
	status.Phase = orchestratorv1alpha1.RunPhaseRunning
	status.Message = "Job created"
	status.JobName = result.JobName
	status.ConfigBundleName = result.BundleName
	now := metav1.Now()
	status.LastUpdateTime = &now
	meta.SetStatusCondition(&status.Conditions, metav1.Condition{
		Type:    orchestratorv1alpha1.ConditionTypeReady,
		Status:  metav1.ConditionFalse,
		Reason:  orchestratorv1alpha1.ReasonJobRunning,
		Message: "Job created, awaiting completion",
	})
}

func applyClassification(status *orchestratorv1alpha1.RunStatus, result classification) {
	status.Phase = result.Phase
	status.Message = result.Message
	now := metav1.Now()
	status.LastUpdateTime = &now

	readyStatus := metav1.ConditionFalse
	reason := orchestratorv1alpha1.ReasonJobPending
	switch result.Phase {
	case orchestratorv1alpha1.RunPhaseRunning:
		reason = orchestratorv1alpha1.ReasonJobRunning
	case orchestratorv1alpha1.RunPhaseSucceeded:
		readyStatus = metav1.ConditionTrue
		reason = orchestratorv1alpha1.ReasonJobSucceeded
	case orchestratorv1alpha1.RunPhaseFailed:
		reason = orchestratorv1alpha1.ReasonJobFailed
	}
	meta.SetStatusCondition(&status.Conditions, metav1.Condition{
		Type:    orchestratorv1alpha1.ConditionTypeReady,
		Status:  readyStatus,
		Reason:  reason,
		Message: result.Message,
	})
}

// SetupWithManager registers this reconciler with mgr.
func (r *DocsRunReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&orchestratorv1alpha1.DocsRun{}).
		Owns(&batchv1.Job{}).
		Owns(&corev1.ConfigMap{}).
		Complete(r)
}
