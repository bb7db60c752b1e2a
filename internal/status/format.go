package status

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Format identifies a status file layout written by the OpenVPN server.
type Format int

const (
	FormatUnknown Format = iota
	FormatMulti1         // --status-version 1
	FormatMulti2         // --status-version 2
	FormatMulti3         // --status-version 3
	FormatMulti4         // --status-version 2 with the Username column
	FormatSingle         // point-to-point statistics
)

// Header lines that identify each format. They are compared verbatim.
const (
	markerSingle = "OpenVPN STATISTICS"
	markerMulti1 = "Common Name,Real Address,Bytes Received,Bytes Sent,Connected Since"
	markerMulti2 = "HEADER,CLIENT_LIST,Common Name,Real Address,Virtual Address,Bytes Received,Bytes Sent,Connected Since,Connected Since (time_t)"
	markerMulti3 = "HEADER CLIENT_LIST Common Name Real Address Virtual Address Bytes Received Bytes Sent Connected Since Connected Since (time_t)"
	markerMulti4 = "HEADER,CLIENT_LIST,Common Name,Real Address,Virtual Address,Bytes Received,Bytes Sent,Connected Since,Connected Since (time_t),Username"
)

var markers = []struct {
	line   string
	format Format
}{
	{markerSingle, FormatSingle},
	{markerMulti1, FormatMulti1},
	{markerMulti2, FormatMulti2},
	{markerMulti3, FormatMulti3},
	{markerMulti4, FormatMulti4},
}

func (f Format) String() string {
	switch f {
	case FormatSingle:
		return "single"
	case FormatMulti1:
		return "multi1"
	case FormatMulti2:
		return "multi2"
	case FormatMulti3:
		return "multi3"
	case FormatMulti4:
		return "multi4"
	default:
		return "unknown"
	}
}

// Detect scans r from the start until a known header line is found.
// It returns FormatUnknown if the input ends first.
func Detect(r io.Reader) (Format, error) {
	lr := newLineReader(r)
	for {
		line, err := lr.next()
		if err == io.EOF {
			return FormatUnknown, nil
		}
		if err != nil {
			return FormatUnknown, err
		}
		for _, m := range markers {
			if line == m.line {
				return m.format, nil
			}
		}
	}
}

// DetectFile runs Detect on the file at path.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	format, err := Detect(f)
	if err != nil {
		return FormatUnknown, fmt.Errorf("reading %s: %w", path, err)
	}
	return format, nil
}

// lineReader yields lines with the trailing newline removed. A final line
// without a newline is still returned.
type lineReader struct {
	br *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReader(r)}
}

func (lr *lineReader) next() (string, error) {
	line, err := lr.br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}
