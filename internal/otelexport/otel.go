// Package otelexport pushes the collected status observations to an OTLP
// collector.
package otelexport

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/bigbes/openvpn-status-exporter/internal/config"
	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

const meterName = "github.com/bigbes/openvpn-status-exporter"

// Source provides the observations of the last published cycle.
type Source interface {
	Observations() []status.Observation
}

// InitProvider installs a global meter provider that exports to the
// configured OTLP gRPC endpoint. The returned function flushes pending
// exports and shuts the provider down.
func InitProvider(ctx context.Context, cfg config.OTelConfig, serviceName string, logger *slog.Logger) (func(), error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating otlp metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp,
				sdkmetric.WithInterval(time.Duration(cfg.Interval)*time.Second),
			),
		),
	)
	otel.SetMeterProvider(provider)

	logger.Info("otel metric export enabled", "endpoint", cfg.Endpoint, "interval", cfg.Interval)

	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			logger.Error("otel: failed to push last exports", "err", err)
			otel.Handle(err)
		}
	}, nil
}

// Register creates the observable instruments on meter and reports src's
// observations on every collection.
func Register(meter metric.Meter, src Source) (metric.Registration, error) {
	users, err := meter.Int64ObservableGauge("openvpn.users",
		metric.WithDescription("Number of connected users per status file."))
	if err != nil {
		return nil, fmt.Errorf("creating users gauge: %w", err)
	}
	octets, err := meter.Int64ObservableCounter("openvpn.if_octets",
		metric.WithDescription("Bytes transferred per client, or tunnel traffic and overhead."),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("creating if_octets counter: %w", err)
	}
	compression, err := meter.Int64ObservableCounter("openvpn.compression",
		metric.WithDescription("Bytes before and after compression."),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("creating compression counter: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, obs := range src.Observations() {
			pinst := attribute.String("plugin_instance", obs.PluginInstance)
			tinst := attribute.String("type_instance", obs.TypeInstance)
			switch obs.Category {
			case status.CategoryUsers:
				o.ObserveInt64(users, int64(obs.Gauge), metric.WithAttributes(pinst, tinst))
			case status.CategoryIfOctets:
				o.ObserveInt64(octets, toInt64(obs.Counters[0]),
					metric.WithAttributes(pinst, tinst, attribute.String("direction", "rx")))
				o.ObserveInt64(octets, toInt64(obs.Counters[1]),
					metric.WithAttributes(pinst, tinst, attribute.String("direction", "tx")))
			case status.CategoryCompression:
				o.ObserveInt64(compression, toInt64(obs.Counters[0]),
					metric.WithAttributes(pinst, tinst, attribute.String("stage", "uncompressed")))
				o.ObserveInt64(compression, toInt64(obs.Counters[1]),
					metric.WithAttributes(pinst, tinst, attribute.String("stage", "compressed")))
			}
		}
		return nil
	}, users, octets, compression)
}

// RegisterGlobal registers src on the global meter provider.
func RegisterGlobal(src Source) (metric.Registration, error) {
	return Register(otel.Meter(meterName), src)
}

func toInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
