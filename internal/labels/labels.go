// Copyright Contributors to the KubeOpenCode project

// Package labels builds and sanitizes the label sets stamped on every child
// resource the orchestrator creates.
package labels

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// AppLabel is the label key carrying the fixed app name on every orchestrator-managed resource.
	AppLabel = "app"
	// AppLabelValue is the value carried by AppLabel.
	AppLabelValue = "orchestrator"

	// ComponentLabel distinguishes docs-generator from code-runner workloads.
	ComponentLabel = "component"
	// ComponentCodeRunner is the component label value for CodeRun jobs.
	ComponentCodeRunner = "code-runner"
	// ComponentDocsGenerator is the component label value for DocsRun jobs.
	ComponentDocsGenerator = "docs-generator"

	// GithubUserLabel carries the sanitized submitter identity.
	GithubUserLabel = "githubUser"
	// ContextVersionLabel carries the resource's context version.
	ContextVersionLabel = "contextVersion"
	// TaskTypeLabel distinguishes "code" from "docs" resources.
	TaskTypeLabel = "taskType"
	// TaskIDLabel carries the originating task id (code runs only).
	TaskIDLabel = "taskId"
	// ServiceNameLabel carries the target service name (code runs only).
	ServiceNameLabel = "serviceName"

	// TaskTypeCode is the TaskTypeLabel value for code runs.
	TaskTypeCode = "code"
	// TaskTypeDocs is the TaskTypeLabel value for docs runs.
	TaskTypeDocs = "docs"
)

// Sanitize normalizes a raw user identity into a label-safe value: lowercase,
// spaces and underscores become hyphens, characters outside [A-Za-z0-9._-]
// are dropped, and leading/trailing non-alphanumeric characters are trimmed.
// Sanitize is idempotent; an empty or entirely-invalid input maps to "unknown".
func Sanitize(raw string) string {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r == ' ' || r == '_':
			b.WriteRune('-')
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-':
			b.WriteRune(r)
		default:
			// dropped
		}
	}

	trimmed := strings.Trim(b.String(), ".-")
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

// CodeRunSelector returns the label selector string matching every resource
// belonging to a given task id, regardless of context version.
func CodeRunSelector(taskID int64) string {
	return fmt.Sprintf("%s=%s,%s=%d", AppLabel, AppLabelValue, TaskIDLabel, taskID)
}

// DocsRunSelector returns the label selector string matching every resource
// belonging to a given (sanitized) docs submitter.
func DocsRunSelector(sanitizedUser string) string {
	return fmt.Sprintf("%s=%s,%s=%s,%s=%s", AppLabel, AppLabelValue, TaskTypeLabel, TaskTypeDocs, GithubUserLabel, sanitizedUser)
}

// ParseContextVersion parses a ContextVersionLabel value, returning ok=false
// if the label is absent or not a valid integer.
func ParseContextVersion(value string) (int32, bool) {
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}
