// Copyright Contributors to the KubeOpenCode project

//go:build integration

// See suite_test.go for explanation of the "integration" build tag pattern.

package controller

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
)

func newCodeRun(name string, taskID int64, service string, version int32) *orchestratorv1alpha1.CodeRun {
	return &orchestratorv1alpha1.CodeRun{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
		},
		Spec: orchestratorv1alpha1.CodeRunSpec{
			TaskID:            taskID,
			ServiceName:       service,
			RepositoryURL:     "git@github.com:org/" + service + ".git",
			DocsRepositoryURL: "git@github.com:org/docs.git",
			GithubUser:        "alice",
			ContextVersion:    version,
		},
	}
}

func envValue(env []corev1.EnvVar, name string) (string, bool) {
	for _, e := range env {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

var _ = Describe("CodeRunController", func() {
	Context("When creating a CodeRun", func() {
		It("Should create the workspace, bundle, and job, and report Running", func() {
			runName := "code-42-1"
			codeRun := newCodeRun(runName, 42, "simple-api", 1)

			By("Creating the CodeRun")
			Expect(k8sClient.Create(ctx, codeRun)).Should(Succeed())

			By("Checking status moves to Running with the job and bundle names recorded")
			lookupKey := types.NamespacedName{Name: runName, Namespace: "default"}
			created := &orchestratorv1alpha1.CodeRun{}
			Eventually(func() orchestratorv1alpha1.RunPhase {
				if err := k8sClient.Get(ctx, lookupKey, created); err != nil {
					return ""
				}
				return created.Status.Phase
			}, timeout, interval).Should(Equal(orchestratorv1alpha1.RunPhaseRunning))

			jobName := fmt.Sprintf("code-impl-%s-task42-v1", runName)
			Expect(created.Status.JobName).To(Equal(jobName))
			Expect(created.Status.ConfigBundleName).To(Equal("simple-api-task42-v1-files"))
			Expect(created.Status.RetryCount).To(BeZero())

			By("Checking the workspace volume exists")
			pvc := &corev1.PersistentVolumeClaim{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "workspace-simple-api", Namespace: "default"}, pvc)).To(Succeed())

			By("Checking the config bundle exists with the full label set")
			bundle := &corev1.ConfigMap{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "simple-api-task42-v1-files", Namespace: "default"}, bundle)).To(Succeed())
			Expect(bundle.Labels).To(HaveKeyWithValue("app", "orchestrator"))
			Expect(bundle.Labels).To(HaveKeyWithValue("component", "code-runner"))
			Expect(bundle.Labels).To(HaveKeyWithValue("taskId", "42"))
			Expect(bundle.Labels).To(HaveKeyWithValue("contextVersion", "1"))
			Expect(bundle.Labels).To(HaveKeyWithValue("taskType", "code"))
			Expect(bundle.Labels).To(HaveKeyWithValue("serviceName", "simple-api"))
			Expect(bundle.Labels).To(HaveKeyWithValue("githubUser", "alice"))
			Expect(bundle.Data).To(HaveKey("container.sh"))
			Expect(bundle.Data).To(HaveKey("mcp.json"))
			Expect(bundle.Data).To(HaveKey("hooks-post-checkout"))

			By("Checking the bundle's owner is the job")
			Expect(bundle.OwnerReferences).To(HaveLen(1))
			Expect(bundle.OwnerReferences[0].Kind).To(Equal("Job"))
			Expect(bundle.OwnerReferences[0].Name).To(Equal(jobName))

			By("Checking the job env carries the code-run variables")
			job := &batchv1.Job{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: jobName, Namespace: "default"}, job)).To(Succeed())
			env := job.Spec.Template.Spec.Containers[0].Env
			taskID, ok := envValue(env, "TASK_ID")
			Expect(ok).To(BeTrue())
			Expect(taskID).To(Equal("42"))
			taskType, _ := envValue(env, "TASK_TYPE")
			Expect(taskType).To(Equal("code"))

			By("Completing the job and observing Succeeded with Ready=True")
			now := metav1.Now()
			job.Status.CompletionTime = &now
			job.Status.Conditions = []batchv1.JobCondition{{
				Type:   batchv1.JobComplete,
				Status: corev1.ConditionTrue,
			}}
			Expect(k8sClient.Status().Update(ctx, job)).To(Succeed())

			Eventually(func() orchestratorv1alpha1.RunPhase {
				if err := k8sClient.Get(ctx, lookupKey, created); err != nil {
					return ""
				}
				return created.Status.Phase
			}, timeout, interval).Should(Equal(orchestratorv1alpha1.RunPhaseSucceeded))

			var ready *metav1.Condition
			for i := range created.Status.Conditions {
				if created.Status.Conditions[i].Type == orchestratorv1alpha1.ConditionTypeReady {
					ready = &created.Status.Conditions[i]
				}
			}
			Expect(ready).NotTo(BeNil())
			Expect(ready.Status).To(Equal(metav1.ConditionTrue))
		})
	})

	Context("When retrying with a higher context version", func() {
		It("Should supersede the lower version's job and bundle", func() {
			By("Creating the v1 CodeRun and waiting for Running")
			v1Run := newCodeRun("code-43-1", 43, "billing", 1)
			Expect(k8sClient.Create(ctx, v1Run)).Should(Succeed())

			v1Key := types.NamespacedName{Name: "code-43-1", Namespace: "default"}
			Eventually(func() orchestratorv1alpha1.RunPhase {
				got := &orchestratorv1alpha1.CodeRun{}
				if err := k8sClient.Get(ctx, v1Key, got); err != nil {
					return ""
				}
				return got.Status.Phase
			}, timeout, interval).Should(Equal(orchestratorv1alpha1.RunPhaseRunning))

			By("Creating the v2 retry")
			v2Run := newCodeRun("code-43-2", 43, "billing", 2)
			v2Run.Spec.PromptModification = "try harder"
			Expect(k8sClient.Create(ctx, v2Run)).Should(Succeed())

			By("Checking the v1 job is deleted")
			v1JobKey := types.NamespacedName{Name: "code-impl-code-43-1-task43-v1", Namespace: "default"}
			Eventually(func() bool {
				job := &batchv1.Job{}
				err := k8sClient.Get(ctx, v1JobKey, job)
				return apierrors.IsNotFound(err) || (err == nil && !job.DeletionTimestamp.IsZero())
			}, timeout, interval).Should(BeTrue())

			By("Checking the v1 bundle is deleted")
			v1BundleKey := types.NamespacedName{Name: "billing-task43-v1-files", Namespace: "default"}
			Eventually(func() bool {
				bundle := &corev1.ConfigMap{}
				err := k8sClient.Get(ctx, v1BundleKey, bundle)
				return apierrors.IsNotFound(err) || (err == nil && !bundle.DeletionTimestamp.IsZero())
			}, timeout, interval).Should(BeTrue())

			By("Checking the v2 job and bundle exist")
			v2Job := &batchv1.Job{}
			Eventually(func() error {
				return k8sClient.Get(ctx, types.NamespacedName{Name: "code-impl-code-43-2-task43-v2", Namespace: "default"}, v2Job)
			}, timeout, interval).Should(Succeed())

			v2Bundle := &corev1.ConfigMap{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "billing-task43-v2-files", Namespace: "default"}, v2Bundle)).To(Succeed())

			By("Checking retryCount reflects the version")
			got := &orchestratorv1alpha1.CodeRun{}
			Eventually(func() int32 {
				if err := k8sClient.Get(ctx, types.NamespacedName{Name: "code-43-2", Namespace: "default"}, got); err != nil {
					return -1
				}
				return got.Status.RetryCount
			}, timeout, interval).Should(Equal(int32(1)))
		})
	})

	Context("When deleting a CodeRun mid-flight", func() {
		It("Should clean up all labeled children and release the finalizer", func() {
			codeRun := newCodeRun("code-44-1", 44, "checkout", 1)
			Expect(k8sClient.Create(ctx, codeRun)).Should(Succeed())

			lookupKey := types.NamespacedName{Name: "code-44-1", Namespace: "default"}
			Eventually(func() orchestratorv1alpha1.RunPhase {
				got := &orchestratorv1alpha1.CodeRun{}
				if err := k8sClient.Get(ctx, lookupKey, got); err != nil {
					return ""
				}
				return got.Status.Phase
			}, timeout, interval).Should(Equal(orchestratorv1alpha1.RunPhaseRunning))

			By("Deleting the CodeRun")
			got := &orchestratorv1alpha1.CodeRun{}
			Expect(k8sClient.Get(ctx, lookupKey, got)).To(Succeed())
			Expect(k8sClient.Delete(ctx, got)).To(Succeed())

			By("Checking the object disappears once cleanup ran")
			Eventually(func() bool {
				err := k8sClient.Get(ctx, lookupKey, &orchestratorv1alpha1.CodeRun{})
				return apierrors.IsNotFound(err)
			}, timeout, interval).Should(BeTrue())

			By("Checking no labeled jobs remain")
			Eventually(func() int {
				var jobs batchv1.JobList
				if err := k8sClient.List(ctx, &jobs, client.InNamespace("default"), client.MatchingLabels{"taskId": "44"}); err != nil {
					return -1
				}
				live := 0
				for i := range jobs.Items {
					if jobs.Items[i].DeletionTimestamp.IsZero() {
						live++
					}
				}
				return live
			}, timeout, interval).Should(BeZero())
		})
	})
})
