package api

import (
	"bytes"
	"strings"
)

// lineBuffer frames a newline-delimited stream that arrives in arbitrary
// chunks. Feed returns every line completed by the chunk; the trailing
// fragment after the last newline is retained and prepended to the next
// chunk, so a record is never parsed before it has fully arrived and no
// bytes are dropped at chunk boundaries.
type lineBuffer struct {
	rest []byte
}

func (b *lineBuffer) feed(chunk []byte) []string {
	b.rest = append(b.rest, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(b.rest, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, string(b.rest[:i]))
		b.rest = b.rest[i+1:]
	}
}

// flush returns the unterminated final line, if any. Call once at clean EOF.
func (b *lineBuffer) flush() (string, bool) {
	line := string(b.rest)
	b.rest = nil
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	return line, true
}
