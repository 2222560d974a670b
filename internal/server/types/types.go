// Copyright Contributors to the KubeOpenCode project

// Package types defines the JSON request/response bodies of the intake API
// and their conversion into CodeRun/DocsRun objects. The MCP tool server
// reuses the same conversion path, so both collaborators construct identical
// custom resources.
package types

import (
	"fmt"
	"regexp"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
)

// serviceNamePattern is the accepted shape of a target service name.
var serviceNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// EnvFromSecret mirrors api/v1alpha1.EnvVarSecretSource for the wire format.
type EnvFromSecret struct {
	Name       string `json:"name"`
	SecretName string `json:"secretName"`
	SecretKey  string `json:"secretKey"`
}

// CreateCodeTaskRequest is the body of POST /api/v1/pm/tasks.
type CreateCodeTaskRequest struct {
	TaskID               int64             `json:"task_id"`
	Service              string            `json:"service"`
	RepositoryURL        string            `json:"repository_url"`
	DocsRepositoryURL    string            `json:"docs_repository_url"`
	DocsProjectDirectory string            `json:"docs_project_directory,omitempty"`
	WorkingDirectory     string            `json:"working_directory,omitempty"`
	Model                string            `json:"model,omitempty"`
	GithubUser           string            `json:"github_user"`
	LocalTools           string            `json:"local_tools,omitempty"`
	RemoteTools          string            `json:"remote_tools,omitempty"`
	ContextVersion       int32             `json:"context_version,omitempty"`
	PromptModification   string            `json:"prompt_modification,omitempty"`
	DocsBranch           string            `json:"docs_branch,omitempty"`
	ContinueSession      bool              `json:"continue_session,omitempty"`
	OverwriteMemory      bool              `json:"overwrite_memory,omitempty"`
	Env                  map[string]string `json:"env,omitempty"`
	EnvFromSecrets       []EnvFromSecret   `json:"env_from_secrets,omitempty"`
}

// Validate checks required fields and the service-name shape.
func (r *CreateCodeTaskRequest) Validate() error {
	if r.TaskID <= 0 {
		return fmt.Errorf("task_id is required and must be positive")
	}
	if !serviceNamePattern.MatchString(r.Service) {
		return fmt.Errorf("service must match [a-z0-9-]+, got %q", r.Service)
	}
	if r.RepositoryURL == "" {
		return fmt.Errorf("repository_url is required")
	}
	if r.DocsRepositoryURL == "" {
		return fmt.Errorf("docs_repository_url is required")
	}
	if r.GithubUser == "" {
		return fmt.Errorf("github_user is required")
	}
	return nil
}

// ToCodeRun converts the request into a CodeRun named code-<taskId>-<unixSeconds>.
// Defaults (context_version=1, docs_branch="main") are applied here rather
// than left to CRD defaulting, so an MCP submission without a webhook-backed
// API server still produces a fully-populated spec.
func (r *CreateCodeTaskRequest) ToCodeRun(namespace string, now time.Time) *orchestratorv1alpha1.CodeRun {
	version := r.ContextVersion
	if version <= 0 {
		version = 1
	}
	branch := r.DocsBranch
	if branch == "" {
		branch = "main"
	}

	var secrets []orchestratorv1alpha1.EnvVarSecretSource
	for _, s := range r.EnvFromSecrets {
		secrets = append(secrets, orchestratorv1alpha1.EnvVarSecretSource{
			Name:       s.Name,
			SecretName: s.SecretName,
			SecretKey:  s.SecretKey,
		})
	}

	return &orchestratorv1alpha1.CodeRun{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("code-%d-%d", r.TaskID, now.Unix()),
			Namespace: namespace,
		},
		Spec: orchestratorv1alpha1.CodeRunSpec{
			TaskID:               r.TaskID,
			ServiceName:          r.Service,
			RepositoryURL:        r.RepositoryURL,
			DocsRepositoryURL:    r.DocsRepositoryURL,
			DocsProjectDirectory: r.DocsProjectDirectory,
			DocsBranch:           branch,
			WorkingDirectory:     r.WorkingDirectory,
			Model:                r.Model,
			GithubUser:           r.GithubUser,
			LocalTools:           r.LocalTools,
			RemoteTools:          r.RemoteTools,
			ContextVersion:       version,
			PromptModification:   r.PromptModification,
			ContinueSession:      r.ContinueSession,
			OverwriteMemory:      r.OverwriteMemory,
			Env:                  r.Env,
			EnvFromSecrets:       secrets,
		},
	}
}

// GenerateDocsRequest is the body of POST /api/v1/pm/docs/generate.
type GenerateDocsRequest struct {
	RepositoryURL    string `json:"repository_url"`
	WorkingDirectory string `json:"working_directory"`
	SourceBranch     string `json:"source_branch"`
	Model            string `json:"model,omitempty"`
	GithubUser       string `json:"github_user"`
}

// Validate checks required fields.
func (r *GenerateDocsRequest) Validate() error {
	if r.RepositoryURL == "" {
		return fmt.Errorf("repository_url is required")
	}
	if r.GithubUser == "" {
		return fmt.Errorf("github_user is required")
	}
	return nil
}

// ToDocsRun converts the request into a DocsRun named docs-gen-<unixSeconds>.
func (r *GenerateDocsRequest) ToDocsRun(namespace string, now time.Time) *orchestratorv1alpha1.DocsRun {
	return &orchestratorv1alpha1.DocsRun{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("docs-gen-%d", now.Unix()),
			Namespace: namespace,
		},
		Spec: orchestratorv1alpha1.DocsRunSpec{
			RepositoryURL:    r.RepositoryURL,
			WorkingDirectory: r.WorkingDirectory,
			SourceBranch:     r.SourceBranch,
			Model:            r.Model,
			GithubUser:       r.GithubUser,
		},
	}
}

// SubmitResponse is returned by both intake endpoints on success.
type SubmitResponse struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Kind      string `json:"kind"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
