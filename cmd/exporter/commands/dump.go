package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/bigbes/openvpn-status-exporter/internal/config"
	"github.com/bigbes/openvpn-status-exporter/internal/exporter"
	"github.com/bigbes/openvpn-status-exporter/internal/metrics"
	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

func Dump(args []string, logger *slog.Logger) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	snapshot := metrics.NewSnapshot()
	e := exporter.New(cfg, snapshot, nil, logger)
	if err := e.Cycle(); err != nil && !errors.Is(err, status.ErrNoData) {
		logger.Error("collection failed", "err", err)
		os.Exit(1)
	}

	writeObservations(os.Stdout, snapshot.Observations())
}

func writeObservations(w io.Writer, obs []status.Observation) {
	for _, o := range obs {
		fmt.Fprintf(w, "%s %s\n", identifier(o), values(o))
	}
}

// identifier renders o as a collectd-style "plugin-instance/type-instance".
func identifier(o status.Observation) string {
	id := "openvpn"
	if o.PluginInstance != "" {
		id += "-" + o.PluginInstance
	}
	id += "/" + string(o.Category)
	if o.TypeInstance != "" {
		id += "-" + o.TypeInstance
	}
	return id
}

func values(o status.Observation) string {
	if o.Category == status.CategoryUsers {
		return strconv.FormatFloat(o.Gauge, 'f', -1, 64)
	}
	return strconv.FormatUint(o.Counters[0], 10) + ":" + strconv.FormatUint(o.Counters[1], 10)
}
