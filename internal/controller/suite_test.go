// Copyright Contributors to the KubeOpenCode project

//go:build integration

// Integration tests run against an envtest control plane and are guarded by
// the "integration" build tag; pure-function unit tests in this package use
// the inverse tag, so `go test ./...` stays fast and hermetic while
// `go test -tags integration` exercises the real API-server interaction.

package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/envtest"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/cleanup"
	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/template"
)

const (
	timeout  = 10 * time.Second
	interval = 250 * time.Millisecond
)

var (
	cfg         *rest.Config
	k8sClient   client.Client
	testEnv     *envtest.Environment
	ctx         context.Context
	cancel      context.CancelFunc
	templateDir string
)

func TestControllers(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Controller Suite")
}

// suiteTemplates is the minimal template bundle the renderer needs; contents
// reference a couple of variables so rendering is observably data-driven.
var suiteTemplates = map[string]string{
	"docs_container.sh.hbs":          "#!/bin/bash\necho docs for {{repository.url}}\n",
	"docs_CLAUDE.md.hbs":             "# Docs agent\nUser: {{user}}\n",
	"docs_settings.json.hbs":         "{\"model\": \"{{model}}\"}\n",
	"docs_prompt.md.hbs":             "Document {{working_directory}}.\n",
	"code_container.sh.hbs":          "#!/bin/bash\necho task {{task_id}} on {{service}}\n",
	"code_CLAUDE.md.hbs":             "# Code agent\nService: {{service}}\n",
	"code_settings.json.hbs":         "{\"model\": \"{{model}}\"}\n",
	"code_mcp.json.hbs":              "{\"tools\": \"{{service}}\"}\n",
	"code_client-config.json.hbs":    "{\"server\": \"config\"}\n",
	"code_coding-guidelines.md.hbs":  "Follow the house style.\n",
	"code_github-guidelines.md.hbs":  "Open a PR as {{user}}.\n",
	"code_mcp-tools.md.hbs":          "Tools for task {{task_id}}.\n",
	"code_hooks_post-checkout.hbs":   "#!/bin/bash\necho hook for {{service}}\n",
}

func suiteConfig() *config.Config {
	return &config.Config{
		Job: config.JobConfig{ActiveDeadlineSeconds: 3600},
		Agent: config.AgentConfig{
			Image: config.AgentImageConfig{Repository: "ghcr.io/example/agent", Tag: "v1.0.0"},
		},
		Secrets: config.SecretsConfig{
			APIKeySecretName: "agent-api-key",
			APIKeySecretKey:  "key",
		},
		Storage: config.StorageConfig{WorkspaceSize: "1Gi"},
		// Cleanup stays disabled so specs observe terminal phases without
		// racing deferred deletion timers.
		Cleanup: config.CleanupConfig{Enabled: false},
	}
}

var _ = BeforeSuite(func() {
	logf.SetLogger(zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true)))

	ctx, cancel = context.WithCancel(context.TODO())

	By("bootstrapping test environment")
	testEnv = &envtest.Environment{
		CRDDirectoryPaths:     []string{filepath.Join("..", "..", "config", "crd", "bases")},
		ErrorIfCRDPathMissing: true,
	}

	var err error
	cfg, err = testEnv.Start()
	Expect(err).NotTo(HaveOccurred())
	Expect(cfg).NotTo(BeNil())

	Expect(orchestratorv1alpha1.AddToScheme(scheme.Scheme)).To(Succeed())

	k8sClient, err = client.New(cfg, client.Options{Scheme: scheme.Scheme})
	Expect(err).NotTo(HaveOccurred())

	By("writing the template bundle")
	templateDir, err = os.MkdirTemp("", "claude-templates")
	Expect(err).NotTo(HaveOccurred())
	for name, content := range suiteTemplates {
		Expect(os.WriteFile(filepath.Join(templateDir, name), []byte(content), 0o644)).To(Succeed())
	}

	By("starting the manager")
	mgr, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme:  scheme.Scheme,
		Metrics: metricsserver.Options{BindAddress: "0"},
	})
	Expect(err).NotTo(HaveOccurred())

	engine := Engine{
		Client:    mgr.GetClient(),
		Config:    suiteConfig(),
		Renderer:  template.New(templateDir),
		Cleanup:   cleanup.NewScheduler(mgr.GetClient(), nil),
		Namespace: "default",
	}

	Expect((&DocsRunReconciler{Engine: engine, Scheme: mgr.GetScheme()}).SetupWithManager(mgr)).To(Succeed())
	Expect((&CodeRunReconciler{Engine: engine, Scheme: mgr.GetScheme()}).SetupWithManager(mgr)).To(Succeed())

	go func() {
		defer GinkgoRecover()
		Expect(mgr.Start(ctx)).To(Succeed())
	}()
})

var _ = AfterSuite(func() {
	cancel()
	By("tearing down the test environment")
	Expect(testEnv.Stop()).To(Succeed())
	if templateDir != "" {
		Expect(os.RemoveAll(templateDir)).To(Succeed())
	}
})
