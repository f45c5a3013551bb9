package admin

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const metricNamespace = "folio/admin"

// saveMetrics counts saves by outcome and records their latency.
type saveMetrics struct {
	saves          metric.Int64Counter
	savesEnabled   bool
	latency        metric.Float64Histogram
	latencyEnabled bool
}

func newSaveMetrics(meter metric.Meter, logger *zap.Logger) saveMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	saves, savesErr := meter.Int64Counter(
		"admin.saves",
		metric.WithDescription("Count of data file saves by outcome"),
	)
	if savesErr != nil {
		logger.Warn("admin: unable to register save metric", zap.Error(savesErr))
	}
	latency, latencyErr := meter.Float64Histogram(
		"admin.save.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for data file saves"),
	)
	if latencyErr != nil {
		logger.Warn("admin: unable to register latency metric", zap.Error(latencyErr))
	}
	return saveMetrics{
		saves:          saves,
		savesEnabled:   savesErr == nil,
		latency:        latency,
		latencyEnabled: latencyErr == nil,
	}
}

func (m saveMetrics) record(ctx context.Context, name string, started time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("file", name),
		attribute.String("outcome", saveOutcome(err)),
	)
	if m.savesEnabled {
		m.saves.Add(ctx, 1, attrs)
	}
	if m.latencyEnabled {
		m.latency.Record(ctx, float64(time.Since(started))/float64(time.Millisecond), attrs)
	}
}

func saveOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrVersionMismatch):
		return "conflict"
	case errors.Is(err, ErrInvalidName):
		return "invalid"
	default:
		return "error"
	}
}
