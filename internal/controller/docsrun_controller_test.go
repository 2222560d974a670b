// Copyright Contributors to the KubeOpenCode project

//go:build integration

// See suite_test.go for explanation of the "integration" build tag pattern.

package controller

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
)

var _ = Describe("DocsRunController", func() {
	Context("When creating a DocsRun", func() {
		It("Should create a bundle and job with docs env and no persistent volume", func() {
			docsRun := &orchestratorv1alpha1.DocsRun{
				ObjectMeta: metav1.ObjectMeta{
					Name:      "docs-gen-1",
					Namespace: "default",
				},
				Spec: orchestratorv1alpha1.DocsRunSpec{
					RepositoryURL:    "git@github.com:org/simple-api.git",
					WorkingDirectory: "_projects/simple-api",
					SourceBranch:     "main",
					GithubUser:       "alice",
				},
			}

			By("Creating the DocsRun")
			Expect(k8sClient.Create(ctx, docsRun)).Should(Succeed())

			By("Checking status moves to Running")
			lookupKey := types.NamespacedName{Name: "docs-gen-1", Namespace: "default"}
			created := &orchestratorv1alpha1.DocsRun{}
			Eventually(func() orchestratorv1alpha1.RunPhase {
				if err := k8sClient.Get(ctx, lookupKey, created); err != nil {
					return ""
				}
				return created.Status.Phase
			}, timeout, interval).Should(Equal(orchestratorv1alpha1.RunPhaseRunning))

			Expect(created.Status.JobName).To(Equal("docs-gen-docs-gen-1"))
			Expect(created.Status.ConfigBundleName).To(Equal("docs-generator-docs-v1-files"))

			By("Checking the job carries SOURCE_BRANCH and no TASK_ID")
			job := &batchv1.Job{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "docs-gen-docs-gen-1", Namespace: "default"}, job)).To(Succeed())
			env := job.Spec.Template.Spec.Containers[0].Env
			branch, ok := envValue(env, "SOURCE_BRANCH")
			Expect(ok).To(BeTrue())
			Expect(branch).To(Equal("main"))
			_, hasTaskID := envValue(env, "TASK_ID")
			Expect(hasTaskID).To(BeFalse())
			taskType, _ := envValue(env, "TASK_TYPE")
			Expect(taskType).To(Equal("docs"))

			By("Checking the working directory fell through to the explicit value")
			workdir, _ := envValue(env, "WORKING_DIRECTORY")
			Expect(workdir).To(Equal("_projects/simple-api"))

			By("Checking no workspace volume was provisioned")
			pvc := &corev1.PersistentVolumeClaim{}
			err := k8sClient.Get(ctx, types.NamespacedName{Name: "workspace-docs-generator", Namespace: "default"}, pvc)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			By("Checking only ephemeral volumes are attached")
			for _, vol := range job.Spec.Template.Spec.Volumes {
				Expect(vol.PersistentVolumeClaim).To(BeNil())
			}

			By("Checking the docs bundle renders the docs-only prompt")
			bundle := &corev1.ConfigMap{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "docs-generator-docs-v1-files", Namespace: "default"}, bundle)).To(Succeed())
			Expect(bundle.Data).To(HaveKey("prompt.md"))
			Expect(bundle.Data).NotTo(HaveKey("mcp.json"))
			Expect(bundle.Labels).To(HaveKeyWithValue("component", "docs-generator"))
			Expect(bundle.Labels).To(HaveKeyWithValue("taskType", "docs"))
			Expect(bundle.Labels).To(HaveKeyWithValue("githubUser", "alice"))
		})
	})
})
