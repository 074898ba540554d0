package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/plan"
)

const namespace = "crewflow"

var _ executor.Events = (*Recorder)(nil)

// Recorder counts workflow activity from engine events. It owns its registry
// so several recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	tasks         *prometheus.CounterVec
	planProposals prometheus.Counter
	planReviews   *prometheus.CounterVec
	stepAttempts  prometheus.Counter
	stepReviews   *prometheus.CounterVec
	replans       prometheus.Counter
	taskDuration  prometheus.Histogram
	tasksActive   prometheus.Gauge

	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Tasks finished, by outcome.",
		}, []string{"outcome"}),
		planProposals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_proposals_total",
			Help:      "Plans proposed by the planner.",
		}),
		planReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_reviews_total",
			Help:      "Plan reviews, by verdict.",
		}, []string{"verdict"}),
		stepAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_attempts_total",
			Help:      "Step execution attempts.",
		}),
		stepReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_reviews_total",
			Help:      "Step reviews, by verdict and quality.",
		}, []string{"verdict", "quality"}),
		replans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replans_total",
			Help:      "Replans requested during execution.",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time per task.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		tasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_active",
			Help:      "Tasks currently running.",
		}),
		started: make(map[string]time.Time),
		now:     time.Now,
	}

	r.registry.MustRegister(
		r.tasks, r.planProposals, r.planReviews, r.stepAttempts,
		r.stepReviews, r.replans, r.taskDuration, r.tasksActive,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func (r *Recorder) OnTaskStart(task plan.Task, taskNum, total int) {
	r.mu.Lock()
	r.started[task.Name] = r.now()
	r.mu.Unlock()
	r.tasksActive.Inc()
}

func (r *Recorder) OnPlanProposed(task plan.Task, p *plan.Plan, attempt int) {
	r.planProposals.Inc()
}

func (r *Recorder) OnPlanReviewed(task plan.Task, review *plan.PlanReview, attempt int) {
	r.planReviews.WithLabelValues(verdict(review.Approved)).Inc()
}

func (r *Recorder) OnStepStart(task plan.Task, step plan.Step, stepNum, total, attempt int) {
	r.stepAttempts.Inc()
}

func (r *Recorder) OnStepReviewed(task plan.Task, result plan.StepResult) {
	quality := string(result.Review.Quality)
	if quality == "" {
		quality = "unknown"
	}
	r.stepReviews.WithLabelValues(verdict(result.Approved()), quality).Inc()
}

func (r *Recorder) OnReplan(task plan.Task, stepID, feedback string, replanAttempt int) {
	r.replans.Inc()
}

func (r *Recorder) OnTaskComplete(result *plan.TaskRunResult) {
	r.finish(result.Task.Name, "completed")
}

func (r *Recorder) OnTaskFailed(task plan.Task, err error) {
	outcome := "failed"
	var boundErr *executor.BoundError
	switch {
	case errors.As(err, &boundErr):
		outcome = string(boundErr.Bound)
	case errors.Is(err, plan.ErrMalformedResponse):
		outcome = "malformed_response"
	}
	r.finish(task.Name, outcome)
}

func (r *Recorder) finish(taskName, outcome string) {
	r.mu.Lock()
	start, ok := r.started[taskName]
	delete(r.started, taskName)
	r.mu.Unlock()

	if ok {
		r.taskDuration.Observe(r.now().Sub(start).Seconds())
		r.tasksActive.Dec()
	}
	r.tasks.WithLabelValues(outcome).Inc()
}

func verdict(approved bool) string {
	if approved {
		return "approved"
	}
	return "rejected"
}
