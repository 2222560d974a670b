// Copyright Contributors to the KubeOpenCode project

package build

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/run"
)

// BuildWorkspaceVolume constructs the per-service PersistentVolumeClaim for
// code runs. Docs runs never call this; they use ephemeral storage only.
func BuildWorkspaceVolume(r run.Run, namespace string, cfg *config.Config) *corev1.PersistentVolumeClaim {
	size := cfg.Storage.WorkspaceSize
	if size == "" {
		size = "10Gi"
	}

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      WorkspaceVolumeName(r.ServiceName()),
			Namespace: namespace,
			Labels:    ChildLabels(r),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(size),
				},
			},
		},
	}

	if cfg.Storage.StorageClassName != "" {
		pvc.Spec.StorageClassName = &cfg.Storage.StorageClassName
	}

	return pvc
}
