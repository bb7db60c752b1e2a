package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

func TestSnapshotCollect(t *testing.T) {
	b := NewBatch()
	b.Observe(status.Observation{Category: status.CategoryIfOctets, PluginInstance: "vpn.status", TypeInstance: "alice", Counters: [2]uint64{1000, 2000}})
	b.Observe(status.Observation{Category: status.CategoryUsers, PluginInstance: "vpn.status", TypeInstance: "vpn.status", Gauge: 1})
	b.Observe(status.Observation{Category: status.CategoryCompression, PluginInstance: "p2p", TypeInstance: "data_in", Counters: [2]uint64{150, 200}})
	b.AddCountry("vpn.status", "DE")

	s := NewSnapshot()
	s.Publish(b)

	expected := `
# HELP openvpn_compression_bytes_total Bytes before and after compression in single mode.
# TYPE openvpn_compression_bytes_total counter
openvpn_compression_bytes_total{plugin_instance="p2p",stage="compressed",type_instance="data_in"} 200
openvpn_compression_bytes_total{plugin_instance="p2p",stage="uncompressed",type_instance="data_in"} 150
# HELP openvpn_if_octets_total Bytes transferred per client, or tunnel traffic and overhead in single mode.
# TYPE openvpn_if_octets_total counter
openvpn_if_octets_total{direction="rx",plugin_instance="vpn.status",type_instance="alice"} 1000
openvpn_if_octets_total{direction="tx",plugin_instance="vpn.status",type_instance="alice"} 2000
# HELP openvpn_users Number of connected users per status file.
# TYPE openvpn_users gauge
openvpn_users{plugin_instance="vpn.status",type_instance="vpn.status"} 1
# HELP openvpn_users_by_country Number of connected users per status file and client country.
# TYPE openvpn_users_by_country gauge
openvpn_users_by_country{country="DE",source="vpn.status"} 1
`
	if err := testutil.CollectAndCompare(s, strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
}

func TestBatchDeduplicates(t *testing.T) {
	// Legacy naming: the same common name in two files collides.
	b := NewBatch()
	b.Observe(status.Observation{Category: status.CategoryIfOctets, PluginInstance: "bob", Counters: [2]uint64{1, 2}})
	b.Observe(status.Observation{Category: status.CategoryIfOctets, PluginInstance: "carol", Counters: [2]uint64{5, 6}})
	b.Observe(status.Observation{Category: status.CategoryIfOctets, PluginInstance: "bob", Counters: [2]uint64{3, 4}})
	if b.Len() != 2 {
		t.Fatalf("got %d observations, want 2", b.Len())
	}

	s := NewSnapshot()
	s.Publish(b)
	obs := s.Observations()
	if obs[0].PluginInstance != "bob" || obs[0].Counters != [2]uint64{3, 4} {
		t.Errorf("first = %+v, want bob with the later counters", obs[0])
	}
	if n := testutil.CollectAndCount(s, "openvpn_if_octets_total"); n != 4 {
		t.Errorf("collected %d series, want 4", n)
	}
}

func TestSnapshotPublishReplaces(t *testing.T) {
	s := NewSnapshot()
	if n := testutil.CollectAndCount(s); n != 0 {
		t.Fatalf("empty snapshot collected %d metrics", n)
	}

	b := NewBatch()
	b.Observe(status.Observation{Category: status.CategoryUsers, PluginInstance: "a", TypeInstance: "a", Gauge: 2})
	s.Publish(b)
	s.Publish(NewBatch())
	if n := testutil.CollectAndCount(s); n != 0 {
		t.Errorf("collected %d metrics after publishing an empty batch", n)
	}
}

func TestSnapshotCountriesSorted(t *testing.T) {
	b := NewBatch()
	b.AddCountry("b", "US")
	b.AddCountry("a", "US")
	b.AddCountry("a", "DE")
	b.AddCountry("a", "DE")

	s := NewSnapshot()
	s.Publish(b)
	got := s.Countries()
	want := []CountryCount{{"a", "DE", 2}, {"a", "US", 1}, {"b", "US", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("countries[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
