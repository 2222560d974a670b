// Copyright Contributors to the KubeOpenCode project

package build

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/5dlabs/orchestrator/internal/run"
)

// BuildBundle constructs the ConfigMap carrying every rendered template file
// for r, keyed by filename. It is created without an owner reference (the
// batch Job does not exist yet); PatchBundleOwner wires the owner reference
// once the Job has been created.
func BuildBundle(r run.Run, namespace, bundleName string, files map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      bundleName,
			Namespace: namespace,
			Labels:    ChildLabels(r),
		},
		Data: files,
	}
}

// PatchBundleOwner sets job as the bundle's sole owner, so deleting the job
// garbage-collects the bundle. Called after the job has been created.
func PatchBundleOwner(bundle *corev1.ConfigMap, jobOwnerRef metav1.OwnerReference) {
	bundle.OwnerReferences = []metav1.OwnerReference{jobOwnerRef}
}
