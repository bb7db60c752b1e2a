package otelexport

import (
	"context"
	"math"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

type staticSource []status.Observation

func (s staticSource) Observations() []status.Observation { return s }

func collect(t *testing.T, src Source) map[string]metricdata.Metrics {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	if _, err := Register(provider.Meter("test"), src); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func attr(t *testing.T, set attribute.Set, key string) string {
	t.Helper()
	v, ok := set.Value(attribute.Key(key))
	if !ok {
		t.Fatalf("attribute %q missing from %v", key, set)
	}
	return v.AsString()
}

func TestRegisterReportsObservations(t *testing.T) {
	src := staticSource{
		{Category: status.CategoryIfOctets, PluginInstance: "server.status", TypeInstance: "alice", Counters: [2]uint64{100, 200}},
		{Category: status.CategoryUsers, PluginInstance: "server.status", TypeInstance: "server.status", Gauge: 3},
		{Category: status.CategoryCompression, PluginInstance: "p2p", TypeInstance: "data_out", Counters: [2]uint64{400, 300}},
	}
	got := collect(t, src)

	users, ok := got["openvpn.users"].Data.(metricdata.Gauge[int64])
	if !ok || len(users.DataPoints) != 1 || users.DataPoints[0].Value != 3 {
		t.Fatalf("openvpn.users = %+v", got["openvpn.users"].Data)
	}
	if v := attr(t, users.DataPoints[0].Attributes, "plugin_instance"); v != "server.status" {
		t.Errorf("plugin_instance = %q", v)
	}

	octets, ok := got["openvpn.if_octets"].Data.(metricdata.Sum[int64])
	if !ok || len(octets.DataPoints) != 2 {
		t.Fatalf("openvpn.if_octets = %+v", got["openvpn.if_octets"].Data)
	}
	if !octets.IsMonotonic {
		t.Error("if_octets should be monotonic")
	}
	byDir := map[string]int64{}
	for _, dp := range octets.DataPoints {
		byDir[attr(t, dp.Attributes, "direction")] = dp.Value
	}
	if byDir["rx"] != 100 || byDir["tx"] != 200 {
		t.Errorf("if_octets by direction = %v", byDir)
	}

	comp, ok := got["openvpn.compression"].Data.(metricdata.Sum[int64])
	if !ok || len(comp.DataPoints) != 2 {
		t.Fatalf("openvpn.compression = %+v", got["openvpn.compression"].Data)
	}
	byStage := map[string]int64{}
	for _, dp := range comp.DataPoints {
		byStage[attr(t, dp.Attributes, "stage")] = dp.Value
	}
	if byStage["uncompressed"] != 400 || byStage["compressed"] != 300 {
		t.Errorf("compression by stage = %v", byStage)
	}
}

func TestRegisterEmptySource(t *testing.T) {
	got := collect(t, staticSource(nil))
	for name, m := range got {
		switch d := m.Data.(type) {
		case metricdata.Sum[int64]:
			if len(d.DataPoints) != 0 {
				t.Errorf("%s has %d points", name, len(d.DataPoints))
			}
		case metricdata.Gauge[int64]:
			if len(d.DataPoints) != 0 {
				t.Errorf("%s has %d points", name, len(d.DataPoints))
			}
		}
	}
}

func TestToInt64Saturates(t *testing.T) {
	if got := toInt64(math.MaxUint64); got != math.MaxInt64 {
		t.Errorf("toInt64(MaxUint64) = %d", got)
	}
	if got := toInt64(42); got != 42 {
		t.Errorf("toInt64(42) = %d", got)
	}
}
