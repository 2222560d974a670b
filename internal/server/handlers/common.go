// Copyright Contributors to the KubeOpenCode project

// Package handlers implements the HTTP intake endpoints. Handlers translate
// request bodies into CodeRun/DocsRun objects and create them; they carry no
// reconciler logic of their own.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/5dlabs/orchestrator/internal/server/types"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, types.ErrorResponse{
		Error:   err,
		Message: message,
		Code:    status,
	})
}
