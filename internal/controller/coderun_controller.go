// Copyright Contributors to the KubeOpenCode project

package controller

import (
	"context"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/metrics"
	"github.com/5dlabs/orchestrator/internal/run"
)

// codeRunFinalizer keeps a CodeRun alive until its children have been
// explicitly released.
const codeRunFinalizer = "coderuns.orchestrator.io/finalizer"

// CodeRunReconciler reconciles a CodeRun object. It is a thin
// controller-runtime wrapper around the shared engine in reconciler.go.
type CodeRunReconciler struct {
	Engine
	Scheme *runtime.Scheme
}

// +kubebuilder:rbac:groups=orchestrator.platform,resources=coderuns,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=orchestrator.platform,resources=coderuns/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=orchestrator.platform,resources=coderuns/finalizers,verbs=update
// +kubebuilder:rbac:groups=batch,resources=jobs,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=configmaps,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=persistentvolumeclaims,verbs=get;list;watch;create
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch

// Reconcile drives a single CodeRun through its lifecycle: finalizer
// installation, child-resource materialization, and status monitoring.
func (r *CodeRunReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	var obj orchestratorv1alpha1.CodeRun
	if err := r.Get(ctx, req.NamespacedName, &obj); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if !obj.DeletionTimestamp.IsZero() {
		return r.reconcileDeletion(ctx, &obj)
	}

	if !controllerutil.ContainsFinalizer(&obj, codeRunFinalizer) {
		controllerutil.AddFinalizer(&obj, codeRunFinalizer)
		if err := r.Update(ctx, &obj); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	view := run.FromCodeRun(&obj)

	if obj.Status.Phase == "" {
		result, err := r.apply(ctx, view)
		if err != nil {
			metrics.ReconcilesTotal.WithLabelValues("code", "error").Inc()
			logger.Error(err, "applying CodeRun")
			return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
		}

		setRunningStatus(&obj.Status.RunStatus, result)
		obj.Status.RetryCount = retryCountFromVersion(view.ContextVersion())
		if err := r.Status().Update(ctx, &obj); err != nil {
			logger.Error(err, "patching CodeRun status to Running")
			return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
		}
		metrics.ReconcilesTotal.WithLabelValues("code", "applied").Inc()
		return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
	}

	if obj.Status.Phase == orchestratorv1alpha1.RunPhaseRunning {
		if err := r.tick(ctx, &obj, view); err != nil {
			logger.Error(err, "monitoring CodeRun status")
		}
	}

	return ctrl.Result{RequeueAfter: RequeuePeriod * time.Second}, nil
}

func (r *CodeRunReconciler) tick(ctx context.Context, obj *orchestratorv1alpha1.CodeRun, view run.Run) error {
	result, err := r.monitor(ctx, view, obj.Status.JobName)
	if err != nil {
		return err
	}
	if result.Phase == obj.Status.Phase && result.Message == obj.Status.Message {
		return nil
	}
	applyClassification(&obj.Status.RunStatus, result)
	return r.Status().Update(ctx, obj)
}

func (r *CodeRunReconciler) reconcileDeletion(ctx context.Context, obj *orchestratorv1alpha1.CodeRun) (ctrl.Result, error) {
	if controllerutil.ContainsFinalizer(obj, codeRunFinalizer) {
		if err := r.cleanupChildren(ctx, run.FromCodeRun(obj)); err != nil {
			return ctrl.Result{}, err
		}
		controllerutil.RemoveFinalizer(obj, codeRunFinalizer)
		if err := r.Update(ctx, obj); err != nil {
			return ctrl.Result{}, err
		}
	}
	return ctrl.Result{}, nil
}

// retryCountFromVersion derives CodeRunStatus.RetryCount from contextVersion:
// version 1 is the first attempt (0 retries), each version thereafter is one
// more retry, matching the field's own doc comment in api/v1alpha1.
func retryCountFromVersion(version int32) int32 {
	if version <= 1 {
		return 0
	}
	return version - 1
}

// SetupWithManager registers this reconciler with mgr.
func (r *CodeRunReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&orchestratorv1alpha1.CodeRun{}).
		Owns(&batchv1.Job{}).
		Owns(&corev1.ConfigMap{}).
		Complete(r)
}
