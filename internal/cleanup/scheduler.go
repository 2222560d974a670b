// Copyright Contributors to the KubeOpenCode project

// Package cleanup implements the deferred, out-of-band deletion of
// completed jobs and their config bundles. Scheduling is
// fire-and-forget: a timer per (namespace, jobName) fires once after a
// configurable delay and then deletes the job and, optionally, any config
// bundle whose name is derived from the owning run's name. Controller
// shutdown aborts pending timers without persistence; bundle owner
// references (set once the job exists, see internal/build.PatchBundleOwner)
// provide eventual garbage collection even if a timer is lost.
package cleanup

import (
	"context"
	"strings"
	"sync"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Clock abstracts time.AfterFunc for testability, so tests can inject a
// clock that fires (or never fires) timers without waiting on wall time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Task parameterizes a single deferred cleanup.
type Task struct {
	JobName      string
	Namespace    string
	RunName      string
	DeleteBundle bool
	Delay        time.Duration
}

// Scheduler owns the set of pending deferred-cleanup timers.
type Scheduler struct {
	client.Client
	Clock Clock

	mu     sync.Mutex
	timers map[string]Timer
}

// NewScheduler creates a Scheduler backed by c. Pass nil for clock to use
// the real wall clock.
func NewScheduler(c client.Client, clock Clock) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	return &Scheduler{Client: c, Clock: clock, timers: make(map[string]Timer)}
}

func timerKey(namespace, jobName string) string { return namespace + "/" + jobName }

// Schedule arms a one-shot timer for t. Re-scheduling the same
// (namespace, jobName) replaces any existing pending timer, so a status
// monitor that observes the same terminal transition twice (e.g. across a
// requeue) never double-schedules.
func (s *Scheduler) Schedule(t Task) {
	key := timerKey(t.Namespace, t.JobName)

	s.mu.Lock()
	if existing, ok := s.timers[key]; ok {
		existing.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	// The timer is armed outside the lock: the callback takes s.mu itself,
	// and a zero-delay timer may fire before AfterFunc returns.
	fired := false
	timer := s.Clock.AfterFunc(t.Delay, func() {
		s.run(t)

		s.mu.Lock()
		fired = true
		delete(s.timers, key)
		s.mu.Unlock()
	})

	s.mu.Lock()
	if !fired {
		s.timers[key] = timer
	}
	s.mu.Unlock()
}

// Pending reports the number of armed timers, for observability/tests.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) run(t Task) {
	ctx := context.Background()
	logger := log.FromContext(ctx).WithName("cleanup").WithValues("job", t.JobName, "namespace", t.Namespace)

	job := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: t.JobName, Namespace: t.Namespace}}
	background := metav1.DeletePropagationBackground
	if err := s.Delete(ctx, job, &client.DeleteOptions{PropagationPolicy: &background}); err != nil {
		if apierrors.IsNotFound(err) {
			logger.Info("deferred cleanup found job already gone")
		} else {
			logger.Error(err, "deferred cleanup failed to delete job")
		}
	} else {
		logger.Info("deferred cleanup deleted job")
	}

	if !t.DeleteBundle {
		return
	}

	wantPrefix := strings.ReplaceAll(t.RunName, "_", "-")
	var bundles corev1.ConfigMapList
	if err := s.List(ctx, &bundles, client.InNamespace(t.Namespace), client.MatchingLabels{"app": "orchestrator"}); err != nil {
		logger.Error(err, "deferred cleanup failed to list config bundles")
		return
	}
	foreground := metav1.DeletePropagationForeground
	for i := range bundles.Items {
		bundle := &bundles.Items[i]
		if !strings.HasPrefix(bundle.Name, wantPrefix) {
			continue
		}
		if err := s.Delete(ctx, bundle, &client.DeleteOptions{PropagationPolicy: &foreground}); err != nil && !apierrors.IsNotFound(err) {
			logger.Error(err, "deferred cleanup failed to delete config bundle", "bundle", bundle.Name)
		}
	}
}
