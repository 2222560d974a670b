// Copyright Contributors to the KubeOpenCode project

package build

import (
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/run"
)

func resourceQuantity(s string) resource.Quantity {
	return resource.MustParse(s)
}

const (
	containerName       = "claude"
	configMountPath     = "/config"
	workspaceMountPath  = "/workspace"
	managedSettingsPath = "/etc/claude-code/managed-settings.json"

	// defaultToolmanURL is used when TOOLMAN_SERVER_URL is unset in the
	// controller's own environment.
	defaultToolmanURL = "http://toolman.orchestrator.svc.cluster.local:8080"

	mcpClientConfigPath = "/config/client-config.json"
)

// JobInputs carries the non-deterministic bits BuildJob needs from its
// caller (the reconciler), keeping BuildJob itself a pure function of its
// arguments for testability.
type JobInputs struct {
	BundleName          string
	WorkspaceVolumeName string // empty for docs runs
	ToolmanServerURL    string // resolved from the controller process environment
}

// BuildJob constructs the batch Job that runs r's agent container.
func BuildJob(r run.Run, namespace string, cfg *config.Config, in JobInputs) *batchv1.Job {
	toolmanURL := in.ToolmanServerURL
	if toolmanURL == "" {
		toolmanURL = defaultToolmanURL
	}

	volumes, mounts := buildVolumes(r, in)
	env := buildEnv(r, cfg, toolmanURL)

	var activeDeadline *int64
	if cfg.Job.ActiveDeadlineSeconds > 0 {
		v := cfg.Job.ActiveDeadlineSeconds
		activeDeadline = &v
	}

	var pullSecrets []corev1.LocalObjectReference
	for _, s := range cfg.Agent.Image.ImagePullSecrets {
		pullSecrets = append(pullSecrets, corev1.LocalObjectReference{Name: s.Name})
	}

	runAsUser := int64(1000)

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:            JobName(r),
			Namespace:       namespace,
			Labels:          ChildLabels(r),
			OwnerReferences: []metav1.OwnerReference{RunOwnerRef(r)},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:          int32Ptr(0), // no retries: agent runs are not idempotent
			ActiveDeadlineSeconds: activeDeadline,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: ChildLabels(r)},
				Spec: corev1.PodSpec{
					RestartPolicy:    corev1.RestartPolicyNever,
					ImagePullSecrets: pullSecrets,
					SecurityContext: &corev1.PodSecurityContext{
						RunAsUser:    &runAsUser,
						RunAsGroup:   &runAsUser,
						FSGroup:      &runAsUser,
						RunAsNonRoot: boolPtr(true),
					},
					Containers: []corev1.Container{
						{
							Name:    containerName,
							Image:   cfg.Agent.Image.Repository + ":" + cfg.Agent.Image.Tag,
							Command: []string{"/bin/bash", configMountPath + "/container.sh"},
							Env:     env,
							Resources: corev1.ResourceRequirements{
								Requests: corev1.ResourceList{
									corev1.ResourceCPU:    resourceQuantity("100m"),
									corev1.ResourceMemory: resourceQuantity("256Mi"),
								},
								Limits: corev1.ResourceList{
									corev1.ResourceCPU:    resourceQuantity("2"),
									corev1.ResourceMemory: resourceQuantity("4Gi"),
								},
							},
							VolumeMounts: mounts,
						},
					},
					Volumes: volumes,
				},
			},
		},
	}
}

// RunOwnerRef returns the owner reference tying a child resource to r, so
// deleting the Run reclaims it.
func RunOwnerRef(r run.Run) metav1.OwnerReference {
	kind := "DocsRun"
	if r.IsCodeRun() {
		kind = "CodeRun"
	}
	return metav1.OwnerReference{
		APIVersion:         orchestratorv1alpha1.GroupVersion.String(),
		Kind:               kind,
		Name:               r.Name(),
		UID:                r.Object().GetUID(),
		Controller:         boolPtr(true),
		BlockOwnerDeletion: boolPtr(true),
	}
}

func buildVolumes(r run.Run, in JobInputs) ([]corev1.Volume, []corev1.VolumeMount) {
	volumes := []corev1.Volume{
		{
			Name: "config",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: in.BundleName},
				},
			},
		},
		credentialVolume(r.GithubUser()),
	}
	mounts := []corev1.VolumeMount{
		{Name: "config", MountPath: configMountPath},
		{
			Name:      "config",
			MountPath: managedSettingsPath,
			SubPath:   "settings.json",
			ReadOnly:  true,
		},
		credentialVolumeMount(),
	}

	if in.WorkspaceVolumeName != "" {
		volumes = append(volumes, corev1.Volume{
			Name: "workspace",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: in.WorkspaceVolumeName,
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: "workspace", MountPath: workspaceMountPath})
	}

	return volumes, mounts
}

func buildEnv(r run.Run, cfg *config.Config, toolmanURL string) []corev1.EnvVar {
	env := []corev1.EnvVar{
		{
			Name: "ANTHROPIC_API_KEY",
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: cfg.Secrets.APIKeySecretName},
					Key:                  cfg.Secrets.APIKeySecretKey,
				},
			},
		},
		{Name: "MODEL", Value: r.Model()},
		{Name: "GITHUB_USER", Value: r.GithubUser()},
		{Name: "REPOSITORY_URL", Value: r.RepositoryURL()},
		{Name: "WORKING_DIRECTORY", Value: r.WorkingDirectory()},
		ghTokenEnvVar(r.GithubUser()),
	}

	if taskID, ok := r.TaskID(); ok {
		env = append(env,
			corev1.EnvVar{Name: "TASK_TYPE", Value: "code"},
			corev1.EnvVar{Name: "TASK_ID", Value: itoa(taskID)},
			corev1.EnvVar{Name: "SERVICE_NAME", Value: r.ServiceName()},
		)
		if docsURL, ok := r.DocsRepositoryURL(); ok {
			env = append(env, corev1.EnvVar{Name: "DOCS_REPOSITORY_URL", Value: docsURL})
		}
		env = append(env,
			corev1.EnvVar{Name: "MCP_CLIENT_CONFIG_PATH", Value: mcpClientConfigPath},
			corev1.EnvVar{Name: "TOOLMAN_SERVER_URL", Value: toolmanURL},
		)
		if tools := r.LocalTools(); len(tools) > 0 {
			env = append(env, corev1.EnvVar{Name: "LOCAL_TOOLS", Value: joinComma(tools)})
		}
		if tools := r.RemoteTools(); len(tools) > 0 {
			env = append(env, corev1.EnvVar{Name: "REMOTE_TOOLS", Value: joinComma(tools)})
		}
		for k, v := range r.Env() {
			env = append(env, corev1.EnvVar{Name: k, Value: v})
		}
		for _, secretRef := range r.EnvFromSecrets() {
			env = append(env, corev1.EnvVar{
				Name: secretRef.Name,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: secretRef.SecretName},
						Key:                  secretRef.SecretKey,
					},
				},
			})
		}
	} else {
		env = append(env,
			corev1.EnvVar{Name: "TASK_TYPE", Value: "docs"},
			corev1.EnvVar{Name: "SOURCE_BRANCH", Value: r.SourceBranch()},
		)
	}

	return env
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}
