// Copyright Contributors to the KubeOpenCode project

package main

import (
	"os"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/cleanup"
	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/controller"
	"github.com/5dlabs/orchestrator/internal/template"
)

// Environment variables read by the controller process.
const (
	envNamespace    = "KUBERNETES_NAMESPACE"
	envToolmanURL   = "TOOLMAN_SERVER_URL"
	envOtlpEndpoint = "OTLP_ENDPOINT"
	envLogsEndpoint = "LOGS_ENDPOINT"
	envLogsProtocol = "LOGS_PROTOCOL"

	defaultNamespace = "orchestrator"
)

var controllerScheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(controllerScheme))
	utilruntime.Must(orchestratorv1alpha1.AddToScheme(controllerScheme))

	rootCmd.AddCommand(controllerCmd)
}

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Start the Kubernetes controller",
	Long: `Start the controller watching DocsRun and CodeRun resources.

Configuration is read once from a mounted file (--config); a validation
failure aborts startup. Templates are loaded lazily from --templates.`,
	RunE: runController,
}

var (
	metricsAddr   string
	probeAddr     string
	enableLeader  bool
	configPath    string
	templatesPath string
	devLogging    bool
)

func init() {
	controllerCmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", ":8080",
		"The address the metric endpoint binds to.")
	controllerCmd.Flags().StringVar(&probeAddr, "health-probe-bind-address", ":8081",
		"The address the probe endpoint binds to.")
	controllerCmd.Flags().BoolVar(&enableLeader, "leader-elect", true,
		"Enable leader election. Concurrent controller instances are not supported; "+
			"disable only when the deployment guarantees a single replica.")
	controllerCmd.Flags().StringVar(&configPath, "config", "/config/config.yaml",
		"Path to the mounted controller configuration file.")
	controllerCmd.Flags().StringVar(&templatesPath, "templates", "/claude-templates",
		"Path to the mounted template bundle (flattened filenames).")
	controllerCmd.Flags().BoolVar(&devLogging, "dev-logging", false,
		"Use a human-readable development logger instead of JSON.")
}

func newLogger() (*zap.Logger, error) {
	if devLogging {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runController(cmd *cobra.Command, args []string) error {
	zapLog, err := newLogger()
	if err != nil {
		return err
	}
	ctrl.SetLogger(zapr.NewLogger(zapLog))
	setupLog := ctrl.Log.WithName("setup")

	cfg, err := config.Load(configPath)
	if err != nil {
		setupLog.Error(err, "loading controller configuration", "path", configPath)
		return err
	}
	overlayTelemetryEnv(cfg)

	namespace := getEnvOrDefault(envNamespace, defaultNamespace)
	toolmanURL := os.Getenv(envToolmanURL)

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 controllerScheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeader,
		LeaderElectionID:       "orchestrator.platform",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	renderer := template.New(templatesPath)
	cleanupScheduler := cleanup.NewScheduler(mgr.GetClient(), nil)

	engine := controller.Engine{
		Client:           mgr.GetClient(),
		Config:           cfg,
		Renderer:         renderer,
		Cleanup:          cleanupScheduler,
		ToolmanServerURL: toolmanURL,
		Namespace:        namespace,
	}

	if err := (&controller.DocsRunReconciler{
		Engine: engine,
		Scheme: mgr.GetScheme(),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "DocsRun")
		return err
	}
	if err := (&controller.CodeRunReconciler{
		Engine: engine,
		Scheme: mgr.GetScheme(),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "CodeRun")
		return err
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager", "namespace", namespace)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}

// overlayTelemetryEnv fills telemetry endpoints left empty by the config file
// from the controller's own environment.
func overlayTelemetryEnv(cfg *config.Config) {
	if cfg.Telemetry.OtlpEndpoint == "" {
		cfg.Telemetry.OtlpEndpoint = os.Getenv(envOtlpEndpoint)
	}
	if cfg.Telemetry.LogsEndpoint == "" {
		cfg.Telemetry.LogsEndpoint = os.Getenv(envLogsEndpoint)
	}
	if cfg.Telemetry.LogsProtocol == "" {
		cfg.Telemetry.LogsProtocol = os.Getenv(envLogsProtocol)
	}
}
