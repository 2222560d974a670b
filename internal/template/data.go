// Copyright Contributors to the KubeOpenCode project

package template

import (
	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/run"
)

// buildTemplateData assembles the variable set passed to every template
// for r. The code variable set is a strict superset of the docs one; docs
// templates simply never reference the code-only keys.
//
// Variable names use snake_case to match the source template files' own
// Handlebars variable references (e.g. "{{working_directory}}"), not Go's
// exported-field convention -- this is a raymond map, not a struct, so no
// Go-side naming collision exists.
func buildTemplateData(r run.Run, cfg *config.Config) map[string]interface{} {
	data := map[string]interface{}{
		"service":           r.ServiceName(),
		"model":             r.Model(),
		"user":              r.GithubUser(),
		"working_directory": r.WorkingDirectory(),
		"repository": map[string]interface{}{
			"url":  r.RepositoryURL(),
			"user": r.GithubUser(),
		},
		"agent_tools_override": cfg.Permissions.AgentToolsOverride,
		"telemetry": map[string]interface{}{
			"enabled":       cfg.Telemetry.Enabled,
			"otlp_endpoint": cfg.Telemetry.OtlpEndpoint,
			"otlp_protocol": cfg.Telemetry.OtlpProtocol,
			"logs_endpoint": cfg.Telemetry.LogsEndpoint,
			"logs_protocol": cfg.Telemetry.LogsProtocol,
		},
		"overwrite_memory": r.OverwriteMemory(),
		"continue_session": r.ContinueSession(),
	}

	if cfg.Permissions.AgentToolsOverride {
		data["permissions"] = map[string]interface{}{
			"allow": cfg.Permissions.Allow,
			"deny":  cfg.Permissions.Deny,
		}
	}

	if taskID, ok := r.TaskID(); ok {
		data["task_id"] = taskID
	}

	retry := map[string]interface{}{
		"context_version": r.ContextVersion(),
	}
	if mod, ok := r.PromptModification(); ok {
		retry["prompt_modification"] = mod
	}
	if sid, ok := r.SessionID(); ok {
		retry["session_id"] = sid
	}
	data["retry"] = retry

	data["tools"] = map[string]interface{}{
		"local":  r.LocalTools(),
		"remote": r.RemoteTools(),
	}

	if docsURL, ok := r.DocsRepositoryURL(); ok {
		data["docs_repository_url"] = docsURL
	}
	if docsDir, ok := r.DocsProjectDirectory(); ok {
		data["docs_project_directory"] = docsDir
	}
	if branch := r.DocsBranch(); branch != "" {
		data["docs_branch"] = branch
	}

	return data
}
