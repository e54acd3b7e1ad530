// Package metrics exposes workflow activity as Prometheus counters.
//
// Counters are fed from the event bus, so nothing in the workflow core
// depends on this package. All metrics are prefixed with "phaseflow_".
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/log"
)

const shutdownTimeout = 5 * time.Second

// Metrics holds the workflow counters.
//
//   - phaseflow_actions_total{action,success}
//   - phaseflow_plans_registered_total{scope}
//   - phaseflow_tasks_done_total{phase}
//   - phaseflow_phases_completed_total{phase}
//   - phaseflow_phase_transitions_total{from,to,trigger}
//   - phaseflow_workflows_completed_total{scope}
//   - phaseflow_source_failures_total{source}
type Metrics struct {
	registry *prometheus.Registry

	ActionsTotal            *prometheus.CounterVec
	PlansRegisteredTotal    *prometheus.CounterVec
	TasksDoneTotal          *prometheus.CounterVec
	PhasesCompletedTotal    *prometheus.CounterVec
	PhaseTransitionsTotal   *prometheus.CounterVec
	WorkflowsCompletedTotal *prometheus.CounterVec
	SourceFailuresTotal     *prometheus.CounterVec
}

// New creates the counters on a private registry. withRuntime adds the Go
// runtime and process collectors, which only make sense for a long-running
// server.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaseflow_actions_total",
			Help: "Workflow actions dispatched, by action and outcome",
		}, []string{"action", "success"}),
		PlansRegisteredTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaseflow_plans_registered_total",
			Help: "Plans registered through the requirements action",
		}, []string{"scope"}),
		TasksDoneTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaseflow_tasks_done_total",
			Help: "Tasks marked done",
		}, []string{"phase"}),
		PhasesCompletedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaseflow_phases_completed_total",
			Help: "Phases added to the completed set",
		}, []string{"phase"}),
		PhaseTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaseflow_phase_transitions_total",
			Help: "Moves of the current phase pointer",
		}, []string{"from", "to", "trigger"}),
		WorkflowsCompletedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaseflow_workflows_completed_total",
			Help: "Plans whose every phase was completed",
		}, []string{"scope"}),
		SourceFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaseflow_source_failures_total",
			Help: "Briefing sources that failed and were left out",
		}, []string{"source"}),
	}
}

// Registry returns the registry the counters live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Subscribe wires the counters to bus and returns the subscription ID.
func (m *Metrics) Subscribe(bus *events.Bus) string {
	return bus.SubscribeAll(m.Observe)
}

// Observe updates counters for one event. Unknown types are ignored.
func (m *Metrics) Observe(e events.Event) {
	switch e.Type {
	case events.TypeActionDispatched:
		success, _ := e.Data["success"].(bool)
		m.ActionsTotal.WithLabelValues(str(e.Data["action"]), strconv.FormatBool(success)).Inc()
	case events.TypeRequirementsSet:
		m.PlansRegisteredTotal.WithLabelValues(str(e.Data["scope"])).Inc()
	case events.TypeTaskDone:
		m.TasksDoneTotal.WithLabelValues(orNone(str(e.Data["phase"]))).Inc()
	case events.TypePhaseCompleted:
		m.PhasesCompletedTotal.WithLabelValues(str(e.Data["phase"])).Inc()
	case events.TypePhaseAdvanced:
		m.PhaseTransitionsTotal.WithLabelValues(str(e.Data["from"]), orNone(str(e.Data["to"])), str(e.Data["trigger"])).Inc()
	case events.TypeWorkflowCompleted:
		m.WorkflowsCompletedTotal.WithLabelValues(str(e.Data["scope"])).Inc()
	case events.TypeSourceFailed:
		m.SourceFailuresTotal.WithLabelValues(str(e.Data["source"])).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
