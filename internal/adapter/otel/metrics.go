package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "depoflow"

// Metrics holds the pipeline metric instruments.
type Metrics struct {
	DocumentsUploaded metric.Int64Counter
	JobsCompleted     metric.Int64Counter
	JobsFailed        metric.Int64Counter
	JobsRetried       metric.Int64Counter
	CreditsDebited    metric.Int64Counter
	JobDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DocumentsUploaded, err = meter.Int64Counter("depoflow.documents.uploaded",
		metric.WithDescription("Number of documents accepted by intake"))
	if err != nil {
		return nil, err
	}

	m.JobsCompleted, err = meter.Int64Counter("depoflow.jobs.completed",
		metric.WithDescription("Number of jobs completed"))
	if err != nil {
		return nil, err
	}

	m.JobsFailed, err = meter.Int64Counter("depoflow.jobs.failed",
		metric.WithDescription("Number of jobs failed terminally"))
	if err != nil {
		return nil, err
	}

	m.JobsRetried, err = meter.Int64Counter("depoflow.jobs.retried",
		metric.WithDescription("Number of job retries scheduled"))
	if err != nil {
		return nil, err
	}

	m.CreditsDebited, err = meter.Int64Counter("depoflow.credits.debited",
		metric.WithDescription("Credits debited for document processing"))
	if err != nil {
		return nil, err
	}

	m.JobDuration, err = meter.Float64Histogram("depoflow.job.duration_seconds",
		metric.WithDescription("Job wall time from claim to completion"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
