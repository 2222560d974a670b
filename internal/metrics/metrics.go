// Copyright Contributors to the KubeOpenCode project

// Package metrics registers the orchestrator's Prometheus counters against
// controller-runtime's global metrics registry, following the same
// registration convention controller-runtime itself uses for its built-in
// work-queue metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// ReconcilesTotal counts reconcile invocations per run kind and outcome.
	ReconcilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_reconciles_total",
		Help: "Total number of reconcile invocations, by run kind and outcome.",
	}, []string{"kind", "outcome"})

	// JobsCreatedTotal counts batch Jobs created, by run kind.
	JobsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_jobs_created_total",
		Help: "Total number of batch Jobs created, by run kind.",
	}, []string{"kind"})

	// SupersessionsTotal counts child resources deleted by version supersession.
	SupersessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_superseded_resources_total",
		Help: "Total number of jobs and bundles deleted by version supersession.",
	}, []string{"resource"})

	// CleanupsScheduledTotal counts deferred cleanup tasks armed, by terminal phase.
	CleanupsScheduledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_cleanups_scheduled_total",
		Help: "Total number of deferred cleanup tasks scheduled, by terminal phase.",
	}, []string{"phase"})
)

func init() {
	metrics.Registry.MustRegister(ReconcilesTotal, JobsCreatedTotal, SupersessionsTotal, CleanupsScheduledTotal)
}
