// Copyright Contributors to the KubeOpenCode project

package build

import (
	corev1 "k8s.io/api/core/v1"
)

const (
	sshVolumeName        = "github-ssh"
	sshMountPath         = "/workspace/.ssh"
	privateKeyMode int32 = 0o600
	publicKeyMode  int32 = 0o644
)

// credentialVolume returns the read-only SSH credential volume sourced from
// the per-user secret github-ssh-<user>. The controller never creates this
// secret; absence surfaces as a pod-level mount failure in job status.
func credentialVolume(githubUser string) corev1.Volume {
	return corev1.Volume{
		Name: sshVolumeName,
		VolumeSource: corev1.VolumeSource{
			Secret: &corev1.SecretVolumeSource{
				SecretName: "github-ssh-" + githubUser,
				Items: []corev1.KeyToPath{
					{Key: "ssh-privatekey", Path: "id_rsa", Mode: int32Ptr(privateKeyMode)},
					{Key: "ssh-publickey", Path: "id_rsa.pub", Mode: int32Ptr(publicKeyMode)},
				},
			},
		},
	}
}

func credentialVolumeMount() corev1.VolumeMount {
	return corev1.VolumeMount{
		Name:      sshVolumeName,
		MountPath: sshMountPath,
		ReadOnly:  true,
	}
}

// ghTokenEnvVar exports the per-user github-token-<user> secret's token key
// as GH_TOKEN.
func ghTokenEnvVar(githubUser string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: "GH_TOKEN",
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: "github-token-" + githubUser},
				Key:                  "token",
			},
		},
	}
}

func int32Ptr(v int32) *int32 { return &v }
func boolPtr(v bool) *bool    { return &v }
