// Package exporter runs the periodic collection loop that reads the
// configured status files and publishes the result to the metrics snapshot.
package exporter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bigbes/openvpn-status-exporter/internal/config"
	"github.com/bigbes/openvpn-status-exporter/internal/geoip"
	"github.com/bigbes/openvpn-status-exporter/internal/metrics"
	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

// unknownCountry labels connections whose address could not be resolved.
const unknownCountry = "unknown"

// Exporter owns the accepted status files and the collection loop.
type Exporter struct {
	collector *status.Collector
	snapshot  *metrics.Snapshot
	geo       *geoip.DB
	interval  time.Duration
	logger    *slog.Logger
}

// BuildSources detects and accepts the given status files. Rejected files
// are logged and skipped.
func BuildSources(paths []string, logger *slog.Logger) *status.Sources {
	sources := &status.Sources{}
	for _, p := range paths {
		src, err := sources.Add(p)
		if err != nil {
			logger.Warn("exporter: status file rejected", "path", p, "err", err)
			if errors.Is(err, status.ErrUnknownFormat) {
				logger.Warn("exporter: unknown file format, please report this as a bug", "path", p)
			}
			continue
		}
		logger.Debug("exporter: status file accepted", "name", src.Name, "path", src.Path, "format", src.Format)
	}
	return sources
}

// New builds an exporter for cfg. geo may be nil to disable country lookups.
func New(cfg *config.Config, snapshot *metrics.Snapshot, geo *geoip.DB, logger *slog.Logger) *Exporter {
	sources := BuildSources(cfg.StatusFiles, logger)
	if sources.Len() == 0 {
		logger.Warn("exporter: no status files accepted")
	}
	metrics.SourcesConfigured.Set(float64(sources.Len()))

	return &Exporter{
		collector: status.NewCollector(sources, cfg.Policy(), logger),
		snapshot:  snapshot,
		geo:       geo,
		interval:  cfg.CollectionInterval(),
		logger:    logger,
	}
}

// Sources returns the accepted status files.
func (e *Exporter) Sources() []*status.Source {
	return e.collector.Sources()
}

// Run performs a cycle immediately and then once per interval until ctx is
// done.
func (e *Exporter) Run(ctx context.Context) {
	e.geo.StartRefresh(ctx)
	_ = e.Cycle()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = e.Cycle()
		}
	}
}

// Cycle reads every status file once and publishes the result. It returns
// status.ErrNoData if no file produced data; the snapshot is published
// either way.
func (e *Exporter) Cycle() error {
	start := time.Now()
	batch := metrics.NewBatch()

	var sink status.Sink = batch
	if e.geo != nil {
		sink = &cycleSink{Batch: batch, geo: e.geo}
	}

	results, err := e.collector.Collect(sink)
	e.snapshot.Publish(batch)

	for _, r := range results {
		up := 0.0
		if r.Produced {
			up = 1
		}
		metrics.SourceUp.WithLabelValues(r.Source.Name, r.Source.Format.String()).Set(up)
		if r.Err != nil {
			metrics.SourceErrorsTotal.WithLabelValues(r.Source.Name).Inc()
		}
	}

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Set(time.Since(start).Seconds())
	if err != nil {
		metrics.CycleFailuresTotal.Inc()
		e.logger.Warn("exporter: collection cycle produced no data", "sources", len(results), "err", err)
		return err
	}
	metrics.LastSuccess.SetToCurrentTime()
	e.logger.Debug("exporter: collection cycle done", "observations", batch.Len(), "duration", time.Since(start))
	return nil
}

// cycleSink adds per-country connection counts to a batch.
type cycleSink struct {
	*metrics.Batch
	geo *geoip.DB
}

func (s *cycleSink) Connection(src *status.Source, rec status.ConnectionRecord) {
	country := s.geo.LookupRealAddress(rec.RealAddress)
	if country == "" {
		country = unknownCountry
	}
	s.AddCountry(src.Name, country)
}
