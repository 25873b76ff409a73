package metrics

import (
	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// TranscriptMetrics tracks transcript mutations and expiry.
//
// Metrics:
//   - parley_commits_total: Committed assistant replies
//   - parley_resets_total: Transcript resets
//   - parley_storage_errors_total: Failed store operations by op
//   - parley_sweeps_total: Expiry sweeps by result
//   - parley_expired_transcripts_total: Transcripts deleted by sweeps
type TranscriptMetrics struct {
	commits       prometheus.Counter
	resets        prometheus.Counter
	storageErrors *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	expired       prometheus.Counter
}

// NewTranscriptMetrics creates and registers transcript metrics with the provided registry.
func NewTranscriptMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TranscriptMetrics {
	tm := &TranscriptMetrics{
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "commits_total",
			Help:      "Total number of committed assistant replies",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "resets_total",
			Help:      "Total number of transcript resets",
		}),
		storageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of failed transcript store operations",
			},
			[]string{"op"},
		),
		sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "sweeps_total",
				Help:      "Total number of transcript expiry sweeps by result",
			},
			[]string{"result"},
		),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "expired_transcripts_total",
			Help:      "Total number of transcripts deleted by expiry sweeps",
		}),
	}

	registry.MustRegister(
		tm.commits,
		tm.resets,
		tm.storageErrors,
		tm.sweeps,
		tm.expired,
	)

	return tm
}

// RecordSweep records one expiry sweep.
func (tm *TranscriptMetrics) RecordSweep(deleted int, err error) {
	if err != nil {
		tm.sweeps.WithLabelValues("error").Inc()
		return
	}
	tm.sweeps.WithLabelValues("success").Inc()
	tm.expired.Add(float64(deleted))
}
