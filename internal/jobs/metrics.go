package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	emails   prometheus.Counter
	attached prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or against the
// default registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker instruments a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// EmailDelivered counts a delivered document email and its documents.
func (m *Metrics) EmailDelivered(documents int) {
	if m == nil {
		return
	}
	m.emails.Inc()
	m.attached.Add(float64(documents))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flexcard_jobs_total",
		Help: "Job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flexcard_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	emails := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flexcard_document_emails_total",
		Help: "Document emails delivered.",
	})
	attached := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flexcard_document_email_documents_total",
		Help: "Documents listed in delivered emails.",
	})
	registerer.MustRegister(runs, duration, emails, attached)
	return &Metrics{runs: runs, duration: duration, emails: emails, attached: attached}
}
