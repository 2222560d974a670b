// Copyright Contributors to the KubeOpenCode project

// Package orcherr defines the error kinds surfaced by the orchestrator core,
// per the error handling design: Kubernetes API errors are propagated as-is
// (404/409 absorbed by callers, not here); the remaining kinds are sentinel
// errors wrapped with fmt.Errorf("%w", ...) so call sites can use errors.Is.
package orcherr

import "errors"

var (
	// ErrMissingKey indicates a malformed or incomplete input object.
	ErrMissingKey = errors.New("missing object key")

	// ErrSerialization indicates a fatal marshal/unmarshal failure for this reconcile.
	ErrSerialization = errors.New("serialization error")

	// ErrConfiguration indicates invalid user/controller configuration, or a
	// template rendering failure; fatal for the current reconcile, retried later.
	ErrConfiguration = errors.New("configuration error")

	// ErrFinalizer indicates an invalid finalizer state; fatal at startup.
	ErrFinalizer = errors.New("invalid finalizer")
)
