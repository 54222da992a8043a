package logging

import (
	"bytes"
	"strings"
	"sync"
)

// Capture is an io.Writer that keeps the last N complete log lines so they
// can be attached to run reports. Partial writes are buffered until a newline.
type Capture struct {
	mu       sync.Mutex
	lines    []string
	maxLines int
	partial  bytes.Buffer
}

// NewCapture creates a capture retaining up to maxLines lines.
func NewCapture(maxLines int) *Capture {
	if maxLines <= 0 {
		maxLines = 200
	}
	return &Capture{
		lines:    make([]string, 0, maxLines),
		maxLines: maxLines,
	}
}

// Write implements io.Writer.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.partial.Write(p)
	for {
		data := c.partial.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		c.append(strings.TrimRight(string(data[:i]), "\r"))
		c.partial.Next(i + 1)
	}
	return len(p), nil
}

func (c *Capture) append(line string) {
	if len(c.lines) >= c.maxLines {
		c.lines = c.lines[1:]
	}
	c.lines = append(c.lines, line)
}

// Lines returns a copy of the retained lines, oldest first.
func (c *Capture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Reset drops every retained line.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = c.lines[:0]
	c.partial.Reset()
}
