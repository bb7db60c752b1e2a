package status

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrNoData is returned by Collect when no source produced anything.
var ErrNoData = errors.New("no status file produced data")

// SourceResult is the outcome of reading one source during a cycle.
type SourceResult struct {
	Source   *Source
	Produced bool
	Err      error
}

// Collector reads every configured source once per Collect call.
type Collector struct {
	sources []*Source
	policy  Policy
	logger  *slog.Logger
}

func NewCollector(sources *Sources, policy Policy, logger *slog.Logger) *Collector {
	return &Collector{
		sources: sources.List(),
		policy:  policy,
		logger:  logger,
	}
}

// Sources returns the sources read by the collector.
func (c *Collector) Sources() []*Source {
	return c.sources
}

// Collect reads all sources, sending observations to sink. A source that
// cannot be opened or read is skipped. ErrNoData is returned if no source
// produced data.
func (c *Collector) Collect(sink Sink) ([]SourceResult, error) {
	results := make([]SourceResult, 0, len(c.sources))
	produced := false

	for _, src := range c.sources {
		ok, err := c.read(src, sink)
		if err != nil {
			c.logger.Warn("collector: reading status file failed",
				"name", src.Name, "path", src.Path, "err", err)
		}
		results = append(results, SourceResult{Source: src, Produced: ok, Err: err})
		produced = produced || ok
	}

	if !produced {
		return results, ErrNoData
	}
	return results, nil
}

func (c *Collector) read(src *Source, sink Sink) (bool, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	ok, err := Parse(f, src, c.policy, sink)
	if err != nil {
		return false, fmt.Errorf("parsing %s status: %w", src.Format, err)
	}
	return ok, nil
}
