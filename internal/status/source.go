package status

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFormat is returned when no known header line is found.
	ErrUnknownFormat = errors.New("unknown status file format")
	// ErrDuplicateName is returned when a source's display name is taken.
	ErrDuplicateName = errors.New("status file name already used")
)

// Source is one configured status file. Format is detected once when the
// source is added and trusted for every later read, so a file that changes
// format is misread until the source is configured again.
type Source struct {
	Path   string
	Name   string
	Format Format
}

// DisplayName returns the last path segment of path, or path itself if it
// has no separator.
func DisplayName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Sources is the ordered set of accepted status files.
type Sources struct {
	list []*Source
}

// Add detects the format of the file at path and appends it. The file is
// rejected if its format is unknown or its display name collides
// (case-insensitively) with an earlier source.
func (s *Sources) Add(path string) (*Source, error) {
	if path == "" {
		return nil, errors.New("empty status file path")
	}
	format, err := DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detecting format of %s: %w", path, err)
	}
	if format == FormatUnknown {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	return s.add(path, format)
}

func (s *Sources) add(path string, format Format) (*Source, error) {
	name := DisplayName(path)
	for _, existing := range s.list {
		if strings.EqualFold(existing.Name, name) {
			return nil, fmt.Errorf("%q: %w", name, ErrDuplicateName)
		}
	}
	src := &Source{Path: path, Name: name, Format: format}
	s.list = append(s.list, src)
	return src, nil
}

// List returns the accepted sources in configuration order.
func (s *Sources) List() []*Source {
	out := make([]*Source, len(s.list))
	copy(out, s.list)
	return out
}

func (s *Sources) Len() int { return len(s.list) }
