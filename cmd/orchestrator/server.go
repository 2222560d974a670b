// Copyright Contributors to the KubeOpenCode project

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/5dlabs/orchestrator/internal/server"
)

func init() {
	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP intake server",
	Long: `Start the HTTP intake server that translates project-management
requests into CodeRun and DocsRun resources.

The server exposes:
  - POST /api/v1/pm/tasks          submit a code-implementation task
  - POST /api/v1/pm/docs/generate  submit a documentation run
  - GET  /health, GET /ready       probes

Example:
  orchestrator server --address=:8080`,
	RunE: runServer,
}

var serverAddress string

func init() {
	serverCmd.Flags().StringVar(&serverAddress, "address", ":8080",
		"The address the server binds to (e.g., :8080 or 0.0.0.0:8080)")
}

func runServer(cmd *cobra.Command, args []string) error {
	zapLog, err := newLogger()
	if err != nil {
		return err
	}
	ctrl.SetLogger(zapr.NewLogger(zapLog))
	log := ctrl.Log.WithName("server")

	namespace := getEnvOrDefault(envNamespace, defaultNamespace)
	log.Info("Starting intake server", "address", serverAddress, "namespace", namespace)

	srv, err := server.New(server.Options{
		Address:   serverAddress,
		Namespace: namespace,
	})
	if err != nil {
		log.Error(err, "Failed to create server")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		log.Error(err, "Server error")
		return err
	}

	return nil
}
