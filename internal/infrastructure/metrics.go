package infrastructure

import (
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	ServiceName = "tyrepulse"
	MeterName   = "tyrepulse"
)

// MetricsProvider holds the meter provider and its Prometheus
// scrape handler.
type MetricsProvider struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
}

// InitializeMetrics sets up OpenTelemetry metrics with a Prometheus
// exporter and registers the meter provider globally. Each provider
// owns its registry so repeated initialization in tests cannot
// collide on collector registration.
func InitializeMetrics() (*MetricsProvider, error) {
	promRegistry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(promRegistry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	return &MetricsProvider{
		MeterProvider:  mp,
		Meter:          mp.Meter(MeterName),
		PrometheusHTTP: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	}, nil
}

// PipelineMetrics are the application-specific instruments recorded
// by the processing pipeline and HTTP layer.
type PipelineMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	PipelineRunsTotal   metric.Int64Counter
	PipelineRunDuration metric.Float64Histogram
	RowsProcessedTotal  metric.Int64Counter
	RowsRejectedTotal   metric.Int64Counter
	SheetsSkippedTotal  metric.Int64Counter
	AnomaliesFlagged    metric.Int64Counter
}

// NewPipelineMetrics registers the pipeline instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pipelineRunsTotal, err := meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	pipelineRunDuration, err := meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rowsProcessedTotal, err := meter.Int64Counter(
		"rows_processed_total",
		metric.WithDescription("Total number of rows accepted into canonical records"),
	)
	if err != nil {
		return nil, err
	}

	rowsRejectedTotal, err := meter.Int64Counter(
		"rows_rejected_total",
		metric.WithDescription("Total number of rows rejected during validation"),
	)
	if err != nil {
		return nil, err
	}

	sheetsSkippedTotal, err := meter.Int64Counter(
		"sheets_skipped_total",
		metric.WithDescription("Total number of sheets skipped for missing structure"),
	)
	if err != nil {
		return nil, err
	}

	anomaliesFlagged, err := meter.Int64Counter(
		"anomalies_flagged_total",
		metric.WithDescription("Total number of anomalies flagged by trend detection"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		PipelineRunsTotal:   pipelineRunsTotal,
		PipelineRunDuration: pipelineRunDuration,
		RowsProcessedTotal:  rowsProcessedTotal,
		RowsRejectedTotal:   rowsRejectedTotal,
		SheetsSkippedTotal:  sheetsSkippedTotal,
		AnomaliesFlagged:    anomaliesFlagged,
	}, nil
}

// SeverityAttr labels anomaly counters by severity.
func SeverityAttr(severity string) metric.AddOption {
	return metric.WithAttributes(attribute.String("severity", severity))
}

// GroupingAttr labels pipeline counters by grouping.
func GroupingAttr(grouping string) metric.AddOption {
	return metric.WithAttributes(attribute.String("grouping", grouping))
}
