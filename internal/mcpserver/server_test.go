// Copyright Contributors to the KubeOpenCode project

//go:build !integration

package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/mark3labs/mcp-go/mcp"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
)

func newTestServer(t *testing.T) (*Server, client.Client) {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := orchestratorv1alpha1.AddToScheme(scheme); err != nil {
		t.Fatalf("building scheme: %v", err)
	}
	c := fake.NewClientBuilder().WithScheme(scheme).Build()
	s := New(c, "orchestrator", logr.Discard())
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, c
}

func TestSubmitCodeTask(t *testing.T) {
	s, c := newTestServer(t)

	var req mcp.CallToolRequest
	req.Params.Name = "submit_code_task"
	req.Params.Arguments = map[string]interface{}{
		"task_id":             float64(42),
		"service":             "simple-api",
		"repository_url":      "git@github.com:org/simple-api.git",
		"docs_repository_url": "git@github.com:org/docs.git",
		"github_user":         "alice",
	}

	result, err := s.handleSubmitCodeTask(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error result: %v", result.Content)
	}

	var created orchestratorv1alpha1.CodeRun
	key := client.ObjectKey{Name: "code-42-1700000000", Namespace: "orchestrator"}
	if err := c.Get(context.Background(), key, &created); err != nil {
		t.Fatalf("expected CodeRun %s: %v", key.Name, err)
	}
	if created.Spec.ContextVersion != 1 {
		t.Errorf("ContextVersion = %d, want default 1", created.Spec.ContextVersion)
	}
}

func TestSubmitCodeTaskRejectsBadService(t *testing.T) {
	s, _ := newTestServer(t)

	var req mcp.CallToolRequest
	req.Params.Name = "submit_code_task"
	req.Params.Arguments = map[string]interface{}{
		"task_id":             float64(1),
		"service":             "Bad_Service",
		"repository_url":      "r",
		"docs_repository_url": "d",
		"github_user":         "alice",
	}

	result, err := s.handleSubmitCodeTask(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for an invalid service name")
	}
}

func TestSubmitDocsRun(t *testing.T) {
	s, c := newTestServer(t)

	var req mcp.CallToolRequest
	req.Params.Name = "submit_docs_run"
	req.Params.Arguments = map[string]interface{}{
		"repository_url":    "git@github.com:org/simple-api.git",
		"working_directory": "_projects/simple-api",
		"source_branch":     "main",
		"github_user":       "alice",
	}

	result, err := s.handleSubmitDocsRun(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error result: %v", result.Content)
	}

	var created orchestratorv1alpha1.DocsRun
	key := client.ObjectKey{Name: "docs-gen-1700000000", Namespace: "orchestrator"}
	if err := c.Get(context.Background(), key, &created); err != nil {
		t.Fatalf("expected DocsRun %s: %v", key.Name, err)
	}
}
