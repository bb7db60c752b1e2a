package commands

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

func Detect(args []string, logger *slog.Logger) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: openvpn-exporter detect <status-file>...")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	if failed := detectFiles(os.Stdout, fs.Args(), logger); failed > 0 {
		os.Exit(1)
	}
}

// detectFiles prints one line per file and returns the number of files
// whose format could not be determined.
func detectFiles(w io.Writer, paths []string, logger *slog.Logger) int {
	failed := 0
	for _, p := range paths {
		format, err := status.DetectFile(p)
		if err != nil {
			logger.Error("failed to read status file", "path", p, "err", err)
			failed++
			continue
		}
		if format == status.FormatUnknown {
			failed++
		}
		fmt.Fprintf(w, "%-8s %-24s %s\n", format, status.DisplayName(p), p)
	}
	return failed
}
