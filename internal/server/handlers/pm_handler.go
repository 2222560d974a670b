// Copyright Contributors to the KubeOpenCode project

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/5dlabs/orchestrator/internal/server/types"
)

// PMHandler handles project-management intake requests. Run names embed the
// submission's unix timestamp, so now is injectable for deterministic tests.
type PMHandler struct {
	client    client.Client
	namespace string
	now       func() time.Time
}

// NewPMHandler creates a PMHandler creating runs in namespace.
func NewPMHandler(c client.Client, namespace string) *PMHandler {
	return &PMHandler{client: c, namespace: namespace, now: time.Now}
}

// CreateTask handles POST /api/v1/pm/tasks.
func (h *PMHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCodeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task request", err.Error())
		return
	}

	codeRun := req.ToCodeRun(h.namespace, h.now())
	if err := h.client.Create(r.Context(), codeRun); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create CodeRun", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, types.SubmitResponse{
		Name:      codeRun.Name,
		Namespace: codeRun.Namespace,
		Kind:      "CodeRun",
	})
}

// GenerateDocs handles POST /api/v1/pm/docs/generate.
func (h *PMHandler) GenerateDocs(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateDocsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid docs request", err.Error())
		return
	}

	docsRun := req.ToDocsRun(h.namespace, h.now())
	if err := h.client.Create(r.Context(), docsRun); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create DocsRun", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, types.SubmitResponse{
		Name:      docsRun.Name,
		Namespace: docsRun.Namespace,
		Kind:      "DocsRun",
	})
}
