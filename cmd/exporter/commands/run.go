package commands

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigbes/openvpn-status-exporter/internal/config"
	"github.com/bigbes/openvpn-status-exporter/internal/exporter"
	"github.com/bigbes/openvpn-status-exporter/internal/geoip"
	"github.com/bigbes/openvpn-status-exporter/internal/metrics"
	"github.com/bigbes/openvpn-status-exporter/internal/otelexport"
)

const defaultConfigPath = "configs/exporter.yaml"

func Run(args []string, logger *slog.Logger, version string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.ParseLogLevel()}))

	logger.Info("starting openvpn-status-exporter", "version", version)
	if bi, ok := debug.ReadBuildInfo(); ok {
		var buildAttrs []any
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs", "vcs.revision", "vcs.time", "vcs.modified":
				buildAttrs = append(buildAttrs, s.Key, s.Value)
			}
		}
		if len(buildAttrs) > 0 {
			logger.Info("build info", buildAttrs...)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snapshot := metrics.NewSnapshot()
	prometheus.MustRegister(snapshot)

	var geo *geoip.DB
	if cfg.GeoIP.Path != "" {
		geo, err = geoip.Open(cfg.GeoIP.Path, time.Duration(cfg.GeoIP.Refresh)*time.Second, logger)
		if err != nil {
			logger.Error("failed to open geoip database", "err", err)
			os.Exit(1)
		}
		defer geo.Close()
	}

	if cfg.OTel.Enabled {
		shutdown, err := otelexport.InitProvider(ctx, cfg.OTel, "openvpn-status-exporter", logger)
		if err != nil {
			logger.Error("failed to init otel provider", "err", err)
			os.Exit(1)
		}
		defer shutdown()
		if _, err := otelexport.RegisterGlobal(snapshot); err != nil {
			logger.Error("failed to register otel instruments", "err", err)
			os.Exit(1)
		}
	}

	if obs := cfg.ObservabilityHTTP; obs.Addr != "" {
		mux := http.NewServeMux()
		if obs.Pprof {
			// net/http/pprof registers on DefaultServeMux.
			mux.HandleFunc("/debug/pprof/", http.DefaultServeMux.ServeHTTP)
		}
		if obs.Metrics {
			mux.Handle("/metrics", promhttp.Handler())
		}
		go func() {
			logger.Info("starting observability server", "addr", obs.Addr, "pprof", obs.Pprof, "metrics", obs.Metrics)
			if err := http.ListenAndServe(obs.Addr, mux); err != nil {
				logger.Error("observability server failed", "err", err)
			}
		}()
	}

	e := exporter.New(cfg, snapshot, geo, logger)
	logger.Info("collecting", "sources", len(e.Sources()), "interval", cfg.CollectionInterval())
	e.Run(ctx)
	logger.Info("shutting down")
}
