package commands

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bigbes/openvpn-status-exporter/internal/config"
)

func Init(args []string, logger *slog.Logger) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	statusFile := fs.String("status", "/var/run/openvpn/server.status", "OpenVPN status file to collect")
	force := fs.Bool("force", false, "overwrite an existing config")
	fs.Parse(args)

	if !*force {
		if _, err := os.Stat(*configPath); err == nil {
			fmt.Fprintf(os.Stderr, "error: %s already exists (use -force to overwrite)\n", *configPath)
			os.Exit(1)
		}
	}

	cfg := config.Default()
	cfg.StatusFiles = []string{*statusFile}

	if err := os.MkdirAll(filepath.Dir(*configPath), 0o755); err != nil {
		logger.Error("failed to create config directory", "err", err)
		os.Exit(1)
	}
	if err := cfg.Save(*configPath); err != nil {
		logger.Error("failed to write config", "err", err)
		os.Exit(1)
	}

	fmt.Println("=== Config initialized ===")
	fmt.Printf("Config:      %s\n", *configPath)
	fmt.Printf("Status file: %s\n", *statusFile)
	fmt.Printf("Metrics:     http://%s/metrics\n", cfg.ObservabilityHTTP.Addr)
}
