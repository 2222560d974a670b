// Copyright Contributors to the KubeOpenCode project

// Package mcpserver exposes the intake contract as MCP tools over stdio.
// Tool arguments decode into the same request types the HTTP handlers use,
// so both collaborators construct identical CodeRun/DocsRun objects.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/5dlabs/orchestrator/internal/server/types"
)

// Server wraps an MCP stdio server that submits runs to the cluster.
type Server struct {
	mcpServer *server.MCPServer
	client    client.Client
	namespace string
	log       logr.Logger
	now       func() time.Time
}

// New creates a Server submitting runs to namespace via c.
func New(c client.Client, namespace string, log logr.Logger) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("orchestrator", "v1", server.WithToolCapabilities(false)),
		client:    c,
		namespace: namespace,
		log:       log,
		now:       time.Now,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the client disconnects.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// decodeArguments round-trips the tool call's argument map through JSON into
// req, so the wire-format field names and defaults match the HTTP intake.
func decodeArguments(args map[string]any, req interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding tool arguments: %w", err)
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return fmt.Errorf("decoding tool arguments: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("submit_code_task",
			mcp.WithDescription("Submit a code-implementation task; creates a CodeRun driven to completion by the orchestrator controller."),
			mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Integer task identifier")),
			mcp.WithString("service", mcp.Required(), mcp.Description("Target service name, [a-z0-9-]+")),
			mcp.WithString("repository_url", mcp.Required(), mcp.Description("Implementation repository URL")),
			mcp.WithString("docs_repository_url", mcp.Required(), mcp.Description("Documentation repository URL")),
			mcp.WithString("docs_project_directory", mcp.Description("Project subdirectory within the docs repository")),
			mcp.WithString("working_directory", mcp.Description("Working subdirectory; defaults to the service name")),
			mcp.WithString("model", mcp.Description("Agent model identifier")),
			mcp.WithString("github_user", mcp.Required(), mcp.Description("Submitter identity for credential resolution")),
			mcp.WithString("local_tools", mcp.Description("Comma-separated local tool list")),
			mcp.WithString("remote_tools", mcp.Description("Comma-separated remote tool list")),
			mcp.WithNumber("context_version", mcp.Description("Retry context version, default 1")),
			mcp.WithString("prompt_modification", mcp.Description("Extra guidance for a retry attempt")),
			mcp.WithString("docs_branch", mcp.Description("Docs repository branch, default main")),
			mcp.WithBoolean("continue_session", mcp.Description("Resume the agent's prior session")),
			mcp.WithBoolean("overwrite_memory", mcp.Description("Regenerate agent memory instead of preserving it")),
		),
		s.handleSubmitCodeTask,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("submit_docs_run",
			mcp.WithDescription("Submit a documentation-generation run; creates a DocsRun driven to completion by the orchestrator controller."),
			mcp.WithString("repository_url", mcp.Required(), mcp.Description("Repository to document")),
			mcp.WithString("working_directory", mcp.Description("Subdirectory to document")),
			mcp.WithString("source_branch", mcp.Description("Branch to check out")),
			mcp.WithString("model", mcp.Description("Agent model identifier")),
			mcp.WithString("github_user", mcp.Required(), mcp.Description("Submitter identity for credential resolution")),
		),
		s.handleSubmitDocsRun,
	)
}

func (s *Server) handleSubmitCodeTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req types.CreateCodeTaskRequest
	if err := decodeArguments(request.GetArguments(), &req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := req.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	codeRun := req.ToCodeRun(s.namespace, s.now())
	if err := s.client.Create(ctx, codeRun); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("creating CodeRun: %v", err)), nil
	}

	s.log.Info("submitted CodeRun", "name", codeRun.Name, "taskId", req.TaskID)
	return mcp.NewToolResultText(fmt.Sprintf("Created CodeRun %s/%s for task %d", codeRun.Namespace, codeRun.Name, req.TaskID)), nil
}

func (s *Server) handleSubmitDocsRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req types.GenerateDocsRequest
	if err := decodeArguments(request.GetArguments(), &req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := req.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	docsRun := req.ToDocsRun(s.namespace, s.now())
	if err := s.client.Create(ctx, docsRun); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("creating DocsRun: %v", err)), nil
	}

	s.log.Info("submitted DocsRun", "name", docsRun.Name)
	return mcp.NewToolResultText(fmt.Sprintf("Created DocsRun %s/%s", docsRun.Namespace, docsRun.Name)), nil
}
