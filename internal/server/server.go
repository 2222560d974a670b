// Copyright Contributors to the KubeOpenCode project

// Package server exposes the HTTP intake API: two submission endpoints that
// translate project-management requests into CodeRun/DocsRun objects, plus
// liveness and readiness probes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/server/handlers"
)

var log = ctrl.Log.WithName("server")

// scheme is the runtime scheme for the server
var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(orchestratorv1alpha1.AddToScheme(scheme))
}

// Options holds the server configuration
type Options struct {
	// Address is the address the server listens on (e.g., ":8080")
	Address string
	// Namespace is where submitted runs are created
	Namespace string
}

// Server is the orchestrator intake server
type Server struct {
	opts       Options
	httpServer *http.Server
	k8sClient  client.Client
}

// New creates a new Server instance
func New(opts Options) (*Server, error) {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}

	k8sClient, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return &Server{opts: opts, k8sClient: k8sClient}, nil
}

// NewWithClient creates a Server around an existing client, for tests.
func NewWithClient(opts Options, c client.Client) *Server {
	return &Server{opts: opts, k8sClient: c}
}

// Run starts the HTTP server and blocks until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              s.opts.Address,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", s.opts.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", s.healthHandler)
	r.Get("/ready", s.readyHandler)

	pmHandler := handlers.NewPMHandler(s.k8sClient, s.opts.Namespace)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pm/tasks", pmHandler.CreateTask)
		r.Post("/pm/docs/generate", pmHandler.GenerateDocs)
	})

	return r
}

// healthHandler returns 200 if the server is healthy
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// readyHandler returns 200 if the server can reach the Kubernetes API
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var runs orchestratorv1alpha1.CodeRunList
	if err := s.k8sClient.List(ctx, &runs, client.Limit(1)); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
