package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

var (
	usersDesc = prometheus.NewDesc(
		"openvpn_users",
		"Number of connected users per status file.",
		[]string{"plugin_instance", "type_instance"}, nil,
	)
	ifOctetsDesc = prometheus.NewDesc(
		"openvpn_if_octets_total",
		"Bytes transferred per client, or tunnel traffic and overhead in single mode.",
		[]string{"plugin_instance", "type_instance", "direction"}, nil,
	)
	compressionDesc = prometheus.NewDesc(
		"openvpn_compression_bytes_total",
		"Bytes before and after compression in single mode.",
		[]string{"plugin_instance", "type_instance", "stage"}, nil,
	)
	countryDesc = prometheus.NewDesc(
		"openvpn_users_by_country",
		"Number of connected users per status file and client country.",
		[]string{"source", "country"}, nil,
	)
)

type obsKey struct {
	category       status.Category
	pluginInstance string
	typeInstance   string
}

type countryKey struct {
	source  string
	country string
}

// CountryCount is the number of connections from one country in one source.
type CountryCount struct {
	Source  string
	Country string
	Users   int
}

// Batch accumulates the observations of one collection cycle. Observations
// with the same identity replace earlier ones, which happens when the
// legacy naming schema sees one common name in several status files.
type Batch struct {
	obs       []status.Observation
	index     map[obsKey]int
	countries map[countryKey]int
}

func NewBatch() *Batch {
	return &Batch{
		index:     make(map[obsKey]int),
		countries: make(map[countryKey]int),
	}
}

// Observe implements status.Sink.
func (b *Batch) Observe(o status.Observation) {
	k := obsKey{o.Category, o.PluginInstance, o.TypeInstance}
	if i, ok := b.index[k]; ok {
		b.obs[i] = o
		return
	}
	b.index[k] = len(b.obs)
	b.obs = append(b.obs, o)
}

// AddCountry counts one connection from country in source.
func (b *Batch) AddCountry(source, country string) {
	b.countries[countryKey{source, country}]++
}

func (b *Batch) Len() int { return len(b.obs) }

// Snapshot holds the last published batch and exposes it as Prometheus
// metrics. It is safe for concurrent scrapes while a new batch is built.
type Snapshot struct {
	mu    sync.RWMutex
	batch *Batch
}

func NewSnapshot() *Snapshot {
	return &Snapshot{batch: NewBatch()}
}

// Publish replaces the current contents with b. b must not be modified
// afterwards.
func (s *Snapshot) Publish(b *Batch) {
	s.mu.Lock()
	s.batch = b
	s.mu.Unlock()
}

// Observations returns a copy of the published observations in emission
// order.
func (s *Snapshot) Observations() []status.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]status.Observation, len(s.batch.obs))
	copy(out, s.batch.obs)
	return out
}

// Countries returns the published per-country user counts sorted by
// source and country.
func (s *Snapshot) Countries() []CountryCount {
	s.mu.RLock()
	out := make([]CountryCount, 0, len(s.batch.countries))
	for k, n := range s.batch.countries {
		out = append(out, CountryCount{Source: k.source, Country: k.country, Users: n})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// Describe implements prometheus.Collector.
func (s *Snapshot) Describe(ch chan<- *prometheus.Desc) {
	ch <- usersDesc
	ch <- ifOctetsDesc
	ch <- compressionDesc
	ch <- countryDesc
}

// Collect implements prometheus.Collector.
func (s *Snapshot) Collect(ch chan<- prometheus.Metric) {
	for _, o := range s.Observations() {
		switch o.Category {
		case status.CategoryUsers:
			ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue,
				o.Gauge, o.PluginInstance, o.TypeInstance)
		case status.CategoryIfOctets:
			ch <- prometheus.MustNewConstMetric(ifOctetsDesc, prometheus.CounterValue,
				float64(o.Counters[0]), o.PluginInstance, o.TypeInstance, "rx")
			ch <- prometheus.MustNewConstMetric(ifOctetsDesc, prometheus.CounterValue,
				float64(o.Counters[1]), o.PluginInstance, o.TypeInstance, "tx")
		case status.CategoryCompression:
			ch <- prometheus.MustNewConstMetric(compressionDesc, prometheus.CounterValue,
				float64(o.Counters[0]), o.PluginInstance, o.TypeInstance, "uncompressed")
			ch <- prometheus.MustNewConstMetric(compressionDesc, prometheus.CounterValue,
				float64(o.Counters[1]), o.PluginInstance, o.TypeInstance, "compressed")
		}
	}
	for _, c := range s.Countries() {
		ch <- prometheus.MustNewConstMetric(countryDesc, prometheus.GaugeValue,
			float64(c.Users), c.Source, c.Country)
	}
}
