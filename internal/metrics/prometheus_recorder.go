package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	requestDuration  *prom.HistogramVec
	requestResults   *prom.CounterVec
	answersRecorded  *prom.CounterVec
	imports          prom.Counter
	resets           prom.Counter
	reminderOutcomes *prom.CounterVec
	historyDays      prom.Gauge
	reminderArmed    prom.Gauge
	eventSubscribers prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.requestDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "inventoryd",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "path"})
		pr.requestResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "inventoryd",
			Name:      "request_results_total",
			Help:      "HTTP responses by path and status code",
		}, []string{"path", "status"})
		pr.answersRecorded = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "inventoryd",
			Name:      "answers_recorded_total",
			Help:      "Inventory answers recorded by side",
		}, []string{"answer"})
		pr.imports = prom.NewCounter(prom.CounterOpts{
			Namespace: "inventoryd",
			Name:      "history_imports_total",
			Help:      "History imports applied",
		})
		pr.resets = prom.NewCounter(prom.CounterOpts{
			Namespace: "inventoryd",
			Name:      "history_resets_total",
			Help:      "History resets applied",
		})
		pr.reminderOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "inventoryd",
			Name:      "reminder_outcomes_total",
			Help:      "Reminder delivery outcomes",
		}, []string{"outcome"})
		pr.historyDays = prom.NewGauge(prom.GaugeOpts{
			Namespace: "inventoryd",
			Name:      "history_days",
			Help:      "Number of days with recorded answers",
		})
		pr.reminderArmed = prom.NewGauge(prom.GaugeOpts{
			Namespace: "inventoryd",
			Name:      "reminder_armed",
			Help:      "Whether a daily reminder is currently scheduled (0 or 1)",
		})
		pr.eventSubscribers = prom.NewGauge(prom.GaugeOpts{
			Namespace: "inventoryd",
			Name:      "event_subscribers",
			Help:      "Connected event-stream clients",
		})
		reg.MustRegister(pr.requestDuration, pr.requestResults, pr.answersRecorded,
			pr.imports, pr.resets, pr.reminderOutcomes, pr.historyDays,
			pr.reminderArmed, pr.eventSubscribers)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRequestDuration(method, path string, d time.Duration) {
	if p == nil || p.requestDuration == nil {
		return
	}
	p.requestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRequestResult(path string, status int) {
	if p == nil || p.requestResults == nil {
		return
	}
	p.requestResults.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

func (p *PrometheusRecorder) IncAnswerRecorded(answer AnswerLabel) {
	if p == nil || p.answersRecorded == nil {
		return
	}
	p.answersRecorded.WithLabelValues(string(answer)).Inc()
}

func (p *PrometheusRecorder) IncImport() {
	if p == nil || p.imports == nil {
		return
	}
	p.imports.Inc()
}

func (p *PrometheusRecorder) IncReset() {
	if p == nil || p.resets == nil {
		return
	}
	p.resets.Inc()
}

func (p *PrometheusRecorder) IncReminderOutcome(outcome ReminderOutcome) {
	if p == nil || p.reminderOutcomes == nil {
		return
	}
	p.reminderOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetHistoryDays(n int) {
	if p == nil || p.historyDays == nil {
		return
	}
	p.historyDays.Set(float64(n))
}

func (p *PrometheusRecorder) SetReminderArmed(armed bool) {
	if p == nil || p.reminderArmed == nil {
		return
	}
	if armed {
		p.reminderArmed.Set(1)
	} else {
		p.reminderArmed.Set(0)
	}
}

func (p *PrometheusRecorder) SetEventSubscribers(n int) {
	if p == nil || p.eventSubscribers == nil {
		return
	}
	p.eventSubscribers.Set(float64(n))
}
