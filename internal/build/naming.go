// Copyright Contributors to the KubeOpenCode project

// Package build composes the child-resource graph for a Run: the config
// bundle (ConfigMap), the workspace volume (PersistentVolumeClaim, code
// only), and the batch Job, plus the version-supersession sweep that
// precedes creating any of them for a code run.
package build

import (
	"strconv"
	"strings"

	"github.com/5dlabs/orchestrator/internal/run"
)

func hyphenate(s string) string {
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	return s
}

// BundleName returns the deterministic config-bundle name for r. Names are
// pure functions of (kind, service, taskId?, contextVersion, runName), so the
// same Run always reproduces the same name.
func BundleName(r run.Run) string {
	service := hyphenate(r.ServiceName())
	if taskID, ok := r.TaskID(); ok {
		return service + "-task" + itoa(taskID) + "-v" + itoa32(r.ContextVersion()) + "-files"
	}
	return service + "-docs-v" + itoa32(r.ContextVersion()) + "-files"
}

// JobName returns the deterministic batch-Job name for r.
func JobName(r run.Run) string {
	runName := hyphenate(r.Name())
	if taskID, ok := r.TaskID(); ok {
		return "code-impl-" + runName + "-task" + itoa(taskID) + "-v" + itoa32(r.ContextVersion())
	}
	return "docs-gen-" + runName
}

// WorkspaceVolumeName returns the deterministic PVC name for a code run's
// service. Docs runs never call this (they use ephemeral storage only).
func WorkspaceVolumeName(serviceName string) string {
	return "workspace-" + hyphenate(serviceName)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func itoa32(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}
