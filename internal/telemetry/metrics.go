package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "migrator"

// Metrics — Prometheus метрики pipeline.
//
// Все методы безопасны для nil receiver, поэтому компоненты
// могут работать без метрик (например, в тестах).
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	retriesTotal  *prometheus.CounterVec
	pollAttempts  *prometheus.CounterVec
	notifyFailure prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by result (succeeded, failed, cancelled).",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall clock duration of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "step_executions_total",
			Help:      "Step executions by step name and result.",
		}, []string{"step", "result"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual step attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"step"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "step_retries_total",
			Help:      "Single retries of required steps by outcome.",
		}, []string{"step", "recovered"}),
		pollAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "poll_attempts_total",
			Help:      "Status poll attempts by observed status.",
		}, []string{"status"}),
		notifyFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notify_failures_total",
			Help:      "Notifications that could not be delivered.",
		}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.stepsTotal,
		m.stepDuration,
		m.retriesTotal,
		m.pollAttempts,
		m.notifyFailure,
	)

	return m
}

// ObserveRun учитывает завершённый run.
func (m *Metrics) ObserveRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
}

// ObserveStep учитывает одну попытку выполнения шага.
func (m *Metrics) ObserveStep(step string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(step, resultLabel(success)).Inc()
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// ObserveRetry учитывает retry обязательного шага.
func (m *Metrics) ObserveRetry(step string, recovered bool) {
	if m == nil {
		return
	}
	label := "false"
	if recovered {
		label = "true"
	}
	m.retriesTotal.WithLabelValues(step, label).Inc()
}

// ObservePoll учитывает одну попытку polling.
// Пустой status означает ошибку describe.
func (m *Metrics) ObservePoll(status string) {
	if m == nil {
		return
	}
	if status == "" {
		status = "error"
	}
	m.pollAttempts.WithLabelValues(status).Inc()
}

// ObserveNotifyFailure учитывает недоставленное уведомление.
func (m *Metrics) ObserveNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailure.Inc()
}

func resultLabel(success bool) string {
	if success {
		return "succeeded"
	}
	return "failed"
}
