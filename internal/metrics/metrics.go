package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so tests and library callers can omit instrumentation.
type Metrics struct {
	MessagesProcessed prometheus.Counter
	ProcessSuccesses  prometheus.Counter
	ProcessFailures   prometheus.Counter
	HeuristicMatches  prometheus.Counter
	ModelCalls        prometheus.Counter
	ParseRecoveries   prometheus.Counter
	DryRunSkips       prometheus.Counter
	RunDuration       prometheus.Histogram
}

// New registers and returns the metric set. Call once per process.
func New() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outlook_categorizer_messages_processed_total",
			Help: "Total number of messages processed",
		}),
		ProcessSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outlook_categorizer_process_successes_total",
			Help: "Messages categorized and filed successfully",
		}),
		ProcessFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outlook_categorizer_process_failures_total",
			Help: "Messages that failed categorization or filing",
		}),
		HeuristicMatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outlook_categorizer_heuristic_matches_total",
			Help: "Messages categorized by a deterministic rule",
		}),
		ModelCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outlook_categorizer_model_calls_total",
			Help: "LLM completion calls issued",
		}),
		ParseRecoveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outlook_categorizer_parse_recoveries_total",
			Help: "Model responses salvaged by truncation recovery",
		}),
		DryRunSkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outlook_categorizer_dry_run_skips_total",
			Help: "Moves skipped because of dry-run mode",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outlook_categorizer_run_duration_seconds",
			Help:    "Duration of full categorization runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) MessageProcessed(success bool) {
	if m == nil {
		return
	}
	m.MessagesProcessed.Inc()
	if success {
		m.ProcessSuccesses.Inc()
	} else {
		m.ProcessFailures.Inc()
	}
}

func (m *Metrics) HeuristicMatch() {
	if m == nil {
		return
	}
	m.HeuristicMatches.Inc()
}

func (m *Metrics) ModelCall() {
	if m == nil {
		return
	}
	m.ModelCalls.Inc()
}

func (m *Metrics) ParseRecovered() {
	if m == nil {
		return
	}
	m.ParseRecoveries.Inc()
}

func (m *Metrics) DryRunSkip() {
	if m == nil {
		return
	}
	m.DryRunSkips.Inc()
}

func (m *Metrics) RunCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}
