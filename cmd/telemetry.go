package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTelemetry installs global tracer and meter providers when enabled.
// Spans are exported over OTLP/HTTP, configured by the standard OTEL_EXPORTER_OTLP_* variables.
// The returned func flushes and stops the providers.
func setupTelemetry(ctx context.Context, enabled bool, logger logSDK.Logger) (func(context.Context), error) {
	if !enabled {
		return func(context.Context) {}, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "new otlp trace exporter")
	}
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	// TODO: attach an otlpmetrichttp periodic reader so tool metrics leave the process.
	meterProvider := sdkmetric.NewMeterProvider()
	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	logger.Info("opentelemetry enabled")

	return func(ctx context.Context) {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Warn("shutdown tracer provider", zap.Error(err))
		}
		if err := meterProvider.Shutdown(ctx); err != nil {
			logger.Warn("shutdown meter provider", zap.Error(err))
		}
	}, nil
}
