// Copyright Contributors to the KubeOpenCode project

// orchestrator is the unified binary for the orchestrator, providing the
// controller, the intake surfaces, and infrastructure tool functionality in
// a single image.
//
// Available commands:
//   - controller:    Start the Kubernetes controller
//   - server:        Start the HTTP intake server
//   - mcp:           Serve the MCP tool surface over stdio
//   - git-init:      Clone the run's repository into the workspace
//   - context-init:  Copy the config bundle into the workspace
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Orchestrator - Kubernetes-native AI coding-agent runs",
	Long: `Orchestrator turns declarative run-an-AI-coding-agent requests into
running, monitored, and cleaned-up batch workloads.

This unified binary provides:
  controller     Start the Kubernetes controller
  server         Start the HTTP intake server
  mcp            Serve the MCP tool surface over stdio
  git-init       Clone the run's repository into the workspace
  context-init   Copy the config bundle into the workspace

Examples:
  # Start the controller
  orchestrator controller --metrics-bind-address=:8080

  # Start the intake server
  orchestrator server --address=:8080

  # Clone the run's repository (used in init containers)
  orchestrator git-init`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getEnvOrDefault returns the environment variable's value, or def when unset.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
