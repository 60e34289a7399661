// Package metrics exposes operational counters: authorization decisions by
// outcome and persistence/audit failures, which must stay visible to
// operators even though they never block the guarded operation.
package metrics

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdk "go.opentelemetry.io/otel/sdk/metric"
)

// Config configures the metrics provider.
type Config struct {
	Enabled  bool          `conf:"enabled" yaml:"enabled" json:"enabled"`
	Interval time.Duration `conf:"interval" yaml:"interval" json:"interval"`
}

// NewProvider builds the meter provider, or nil when metrics are disabled.
func NewProvider(config Config) (*sdk.MeterProvider, error) {
	if !config.Enabled {
		return nil, nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}

	interval := config.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	return sdk.NewMeterProvider(
		sdk.WithReader(sdk.NewPeriodicReader(exporter, sdk.WithInterval(interval))),
	), nil
}

var (
	decisions          metric.Int64Counter
	auditWriteFailures metric.Int64Counter
	configSaveFailures metric.Int64Counter
)

// SetupMetrics registers the provider globally and creates the instruments.
func SetupMetrics(provider *sdk.MeterProvider, name string) error {
	otel.SetMeterProvider(provider)

	meter := otel.Meter(name)

	var err error

	decisions, err = meter.Int64Counter("guardpost.decisions",
		metric.WithDescription("Authorization decisions by outcome and code"))
	if err != nil {
		return err
	}

	auditWriteFailures, err = meter.Int64Counter("guardpost.audit.write_failures",
		metric.WithDescription("Audit appends or rotations that failed"))
	if err != nil {
		return err
	}

	configSaveFailures, err = meter.Int64Counter("guardpost.config.save_failures",
		metric.WithDescription("Config snapshot saves that failed"))
	if err != nil {
		return err
	}

	return nil
}

// RecordDecision counts one authorization decision.
func RecordDecision(ctx context.Context, allowed bool, code string) {
	if decisions == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("decision", lo.Ternary(allowed, "allow", "deny")),
	}
	if code != "" {
		attrs = append(attrs, attribute.String("code", code))
	}

	decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuditWriteFailure counts one failed audit write.
func RecordAuditWriteFailure(ctx context.Context) {
	if auditWriteFailures == nil {
		return
	}

	auditWriteFailures.Add(ctx, 1)
}

// RecordConfigSaveFailure counts one failed config save.
func RecordConfigSaveFailure(ctx context.Context) {
	if configSaveFailures == nil {
		return
	}

	configSaveFailures.Add(ctx, 1)
}
