package status

import (
	"fmt"
	"io"
)

const (
	recordClientList = "CLIENT_LIST"
	lineRoutingTable = "ROUTING TABLE"
)

// layout describes where a multi-client format keeps its connection data.
type layout struct {
	sep       Separator
	maxFields int
	fields    int  // required field count
	atLeast   bool // fields is a minimum rather than an exact count
	header    string
	stop      string
	record    string // required value of field 0

	name, addr, rx, tx int
}

var layouts = map[Format]layout{
	FormatMulti1: {
		sep: SepComma, maxFields: 10, fields: 4, atLeast: true,
		header: markerMulti1, stop: lineRoutingTable,
		name: 0, addr: 1, rx: 2, tx: 3,
	},
	FormatMulti2: {
		sep: SepComma, maxFields: 10, fields: 8, record: recordClientList,
		name: 1, addr: 2, rx: 4, tx: 5,
	},
	FormatMulti3: {
		sep: SepSpace, maxFields: 15, fields: 12, record: recordClientList,
		name: 1, addr: 2, rx: 4, tx: 5,
	},
	FormatMulti4: {
		sep: SepComma, maxFields: 11, fields: 9, record: recordClientList,
		name: 1, addr: 2, rx: 4, tx: 5,
	},
}

func (l layout) accepts(fields []string) bool {
	if l.atLeast {
		if len(fields) < l.fields {
			return false
		}
	} else if len(fields) != l.fields {
		return false
	}
	return l.record == "" || fields[0] == l.record
}

func (l layout) connection(fields []string) ConnectionRecord {
	return ConnectionRecord{
		CommonName:    fields[l.name],
		RealAddress:   fields[l.addr],
		BytesReceived: parseCounter(fields[l.rx]),
		BytesSent:     parseCounter(fields[l.tx]),
	}
}

// Parse reads one full status file snapshot of src.Format from r and emits
// observations to sink. produced reports whether anything was emitted for
// an enabled metric category. A read error aborts the pass.
func Parse(r io.Reader, src *Source, policy Policy, sink Sink) (produced bool, err error) {
	if src.Format == FormatSingle {
		return parseSingle(r, src, policy, sink)
	}
	l, ok := layouts[src.Format]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownFormat, src.Format)
	}
	return parseMulti(r, l, src, policy, sink)
}

func parseMulti(r io.Reader, l layout, src *Source, policy Policy, sink Sink) (bool, error) {
	conns, _ := sink.(ConnectionSink)
	seeking := l.header != ""
	users := 0

	lr := newLineReader(r)
	for {
		line, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}

		if l.stop != "" && line == l.stop {
			break
		}
		if l.header != "" && line == l.header {
			seeking = false
			continue
		}
		if seeking {
			continue
		}

		fields := SplitFields(line, l.sep, l.maxFields)
		if !l.accepts(fields) {
			continue
		}

		rec := l.connection(fields)
		users++
		if conns != nil {
			conns.Connection(src, rec)
		}
		if policy.CollectIndividualUsers {
			sink.Observe(policy.connectionObservation(src, rec))
		}
	}

	if policy.CollectUserCount {
		sink.Observe(usersObservation(src, users))
		return true, nil
	}
	return users > 0, nil
}

// TunnelCounters holds the byte counters of a point-to-point statistics file.
type TunnelCounters struct {
	TunRx, TunTx   uint64 // TUN/TAP write, read
	LinkRx, LinkTx uint64 // TCP/UDP read, write
	AuthRead       uint64
	PreCompress    uint64
	PostCompress   uint64
	PreDecompress  uint64
	PostDecompress uint64
}

// set stores value under label, reporting whether label is known.
func (c *TunnelCounters) set(label string, value uint64) bool {
	switch label {
	case "TUN/TAP read bytes":
		// read from the system, sent over the tunnel
		c.TunTx = value
	case "TUN/TAP write bytes":
		c.TunRx = value
	case "TCP/UDP read bytes":
		c.LinkRx = value
	case "TCP/UDP write bytes":
		c.LinkTx = value
	case "Auth read bytes":
		c.AuthRead = value
	case "pre-compress bytes":
		c.PreCompress = value
	case "post-compress bytes":
		c.PostCompress = value
	case "pre-decompress bytes":
		c.PreDecompress = value
	case "post-decompress bytes":
		c.PostDecompress = value
	default:
		return false
	}
	return true
}

// Overhead returns the link bytes not accounted for by tunnel payload,
// adjusted for compression. Terms are applied left to right so that a
// consistent set of counters never goes below zero midway.
func (c TunnelCounters) Overhead() (rx, tx uint64) {
	rx = subSat(subSat(c.LinkRx, c.PreDecompress)+c.PostDecompress, c.TunRx)
	tx = subSat(subSat(c.LinkTx, c.PostCompress)+c.PreCompress, c.TunTx)
	return rx, tx
}

func subSat(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func parseSingle(r io.Reader, src *Source, policy Policy, sink Sink) (bool, error) {
	var c TunnelCounters

	lr := newLineReader(r)
	for {
		line, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}
		fields := SplitFields(line, SepComma, 4)
		if len(fields) != 2 {
			continue
		}
		c.set(fields[0], parseCounter(fields[1]))
	}

	sink.Observe(Observation{
		Category:       CategoryIfOctets,
		PluginInstance: src.Name,
		TypeInstance:   "traffic",
		Counters:       [2]uint64{c.LinkRx, c.LinkTx},
	})

	orx, otx := c.Overhead()
	sink.Observe(Observation{
		Category:       CategoryIfOctets,
		PluginInstance: src.Name,
		TypeInstance:   "overhead",
		Counters:       [2]uint64{orx, otx},
	})

	if policy.CollectCompression {
		sink.Observe(Observation{
			Category:       CategoryCompression,
			PluginInstance: src.Name,
			TypeInstance:   "data_in",
			Counters:       [2]uint64{c.PostDecompress, c.PreDecompress},
		})
		sink.Observe(Observation{
			Category:       CategoryCompression,
			PluginInstance: src.Name,
			TypeInstance:   "data_out",
			Counters:       [2]uint64{c.PreCompress, c.PostCompress},
		})
	}
	return true, nil
}
