// Copyright Contributors to the KubeOpenCode project

package build

import (
	"strconv"

	"github.com/5dlabs/orchestrator/internal/labels"
	"github.com/5dlabs/orchestrator/internal/run"
)

// ChildLabels returns the stable label set stamped on every child resource
// (job, bundle, and for code runs the workspace volume) belonging to r.
func ChildLabels(r run.Run) map[string]string {
	set := map[string]string{
		labels.AppLabel:            labels.AppLabelValue,
		labels.GithubUserLabel:     labels.Sanitize(r.GithubUser()),
		labels.ContextVersionLabel: strconv.Itoa(int(r.ContextVersion())),
	}

	if taskID, ok := r.TaskID(); ok {
		set[labels.ComponentLabel] = labels.ComponentCodeRunner
		set[labels.TaskTypeLabel] = labels.TaskTypeCode
		set[labels.TaskIDLabel] = strconv.FormatInt(taskID, 10)
		set[labels.ServiceNameLabel] = r.ServiceName()
	} else {
		set[labels.ComponentLabel] = labels.ComponentDocsGenerator
		set[labels.TaskTypeLabel] = labels.TaskTypeDocs
	}

	return set
}

// CleanupSelector returns the selector string used by the reconcile loop's
// cleanup branch to find every job/bundle belonging to r.
func CleanupSelector(r run.Run) string {
	if taskID, ok := r.TaskID(); ok {
		return labels.CodeRunSelector(taskID)
	}
	return labels.DocsRunSelector(labels.Sanitize(r.GithubUser()))
}
