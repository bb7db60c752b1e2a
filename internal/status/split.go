package status

import "strings"

// Separator selects the delimiter set used by SplitFields.
type Separator int

const (
	// SepComma splits on ',' only.
	SepComma Separator = iota
	// SepSpace splits on spaces, tabs and line terminators.
	SepSpace
)

func (s Separator) isDelim(c byte) bool {
	if s == SepComma {
		return c == ','
	}
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// SplitFields tokenizes line into at most max fields. Runs of delimiters
// produce no empty fields. Once max-1 fields have been taken, the rest of
// the line (leading delimiters removed) becomes the last field.
func SplitFields(line string, sep Separator, max int) []string {
	if max <= 0 {
		return nil
	}
	fields := make([]string, 0, max)
	i := 0
	for i < len(line) {
		for i < len(line) && sep.isDelim(line[i]) {
			i++
		}
		if i == len(line) {
			break
		}
		if len(fields) == max-1 {
			fields = append(fields, line[i:])
			break
		}
		start := i
		for i < len(line) && !sep.isDelim(line[i]) {
			i++
		}
		fields = append(fields, line[start:i])
	}
	return fields
}

// parseCounter reads a byte counter the way status files print them:
// optional leading blanks and '+', then decimal digits. Anything else,
// including a negative sign or overflow, yields zero.
func parseCounter(s string) uint64 {
	s = strings.TrimLeft(s, " \t")
	s = strings.TrimPrefix(s, "+")
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		d := uint64(c - '0')
		if n > (^uint64(0)-d)/10 {
			return 0
		}
		n = n*10 + d
	}
	return n
}
