package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bigbes/openvpn-status-exporter/cmd/exporter/commands"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		commands.Run(os.Args[2:], logger, version)
	case "detect":
		commands.Detect(os.Args[2:], logger)
	case "dump":
		commands.Dump(os.Args[2:], logger)
	case "init":
		commands.Init(os.Args[2:], logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: openvpn-exporter <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run       Start collecting and serve metrics")
	fmt.Fprintln(os.Stderr, "  detect    Print the detected format of status files")
	fmt.Fprintln(os.Stderr, "  dump      Run one collection cycle and print the values")
	fmt.Fprintln(os.Stderr, "  init      Write a default config")
}
