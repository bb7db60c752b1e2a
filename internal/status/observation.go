package status

import "errors"

// Category is the metric family of an observation.
type Category string

const (
	CategoryUsers       Category = "users"
	CategoryIfOctets    Category = "if_octets"
	CategoryCompression Category = "compression"
)

// Observation is one emitted value. Users observations carry Gauge;
// if_octets carries (rx, tx) and compression (uncompressed, compressed)
// in Counters.
type Observation struct {
	Category       Category
	PluginInstance string
	TypeInstance   string
	Gauge          float64
	Counters       [2]uint64
}

// Sink receives observations in emission order.
type Sink interface {
	Observe(Observation)
}

// ConnectionSink is implemented by sinks that also want every qualifying
// connection line, regardless of Policy.
type ConnectionSink interface {
	Connection(src *Source, rec ConnectionRecord)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Observation)

func (f SinkFunc) Observe(o Observation) { f(o) }

// ConnectionRecord is one client line from a multi-client status file.
type ConnectionRecord struct {
	CommonName    string
	RealAddress   string
	BytesReceived uint64
	BytesSent     uint64
}

// ErrNothingToCollect is returned by Policy.Validate when every metric
// category is disabled.
var ErrNothingToCollect = errors.New("neither individual users, compression nor user count is collected")

// Policy controls which observations are emitted and how they are named.
type Policy struct {
	ImprovedNamingSchema   bool
	CollectCompression     bool
	CollectUserCount       bool
	CollectIndividualUsers bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		CollectCompression:     true,
		CollectIndividualUsers: true,
	}
}

func (p Policy) Validate() error {
	if !p.CollectIndividualUsers && !p.CollectCompression && !p.CollectUserCount {
		return ErrNothingToCollect
	}
	return nil
}

// connectionObservation names a per-client traffic observation. The legacy
// schema drops the source name, so equal common names in different files
// share an identity.
func (p Policy) connectionObservation(src *Source, rec ConnectionRecord) Observation {
	o := Observation{
		Category: CategoryIfOctets,
		Counters: [2]uint64{rec.BytesReceived, rec.BytesSent},
	}
	if p.ImprovedNamingSchema {
		o.PluginInstance = src.Name
		o.TypeInstance = rec.CommonName
	} else {
		o.PluginInstance = rec.CommonName
	}
	return o
}

func usersObservation(src *Source, n int) Observation {
	return Observation{
		Category:       CategoryUsers,
		PluginInstance: src.Name,
		TypeInstance:   src.Name,
		Gauge:          float64(n),
	}
}
