// Copyright Contributors to the KubeOpenCode project

package main

import (
	"fmt"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/mcpserver"
)

var mcpScheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(mcpScheme))
	utilruntime.Must(orchestratorv1alpha1.AddToScheme(mcpScheme))

	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tool surface over stdio",
	Long: `Serve the MCP (Model Context Protocol) tool surface over stdio.

Registers two tools mirroring the HTTP intake endpoints:
  submit_code_task   create a CodeRun
  submit_docs_run    create a DocsRun

Example (as an MCP server entry in a client config):
  orchestrator mcp`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	// Logs go to stderr via zap; stdout carries the MCP protocol stream.
	zapLog, err := zap.NewProduction()
	if err != nil {
		return err
	}
	ctrl.SetLogger(zapr.NewLogger(zapLog))
	log := ctrl.Log.WithName("mcp")

	cfg, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to get kubeconfig: %w", err)
	}
	k8sClient, err := client.New(cfg, client.Options{Scheme: mcpScheme})
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	namespace := getEnvOrDefault(envNamespace, defaultNamespace)
	log.Info("Starting MCP server on stdio", "namespace", namespace)

	return mcpserver.New(k8sClient, namespace, log).Run()
}
