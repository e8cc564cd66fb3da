package main

import (
	"io"
	"strings"
)

// accumulator collects streamed fragments in arrival order. Raw fragments are
// echoed as they come in; the buffer only ever holds backtick-free text.
type accumulator struct {
	echo  io.Writer
	buf   strings.Builder
	count int
}

func newAccumulator(echo io.Writer) *accumulator {
	if echo == nil {
		echo = io.Discard
	}
	return &accumulator{echo: echo}
}

// add returns the echo write error, if any. The fragment is buffered either way.
func (a *accumulator) add(f fragment) error {
	if f.empty() {
		return nil
	}
	a.count++
	_, err := io.WriteString(a.echo, f.Content)
	a.buf.WriteString(stripFences(f.Content))
	return err
}

func (a *accumulator) fragments() int {
	return a.count
}

// result removes every "python" from the joined text, not only the ones that
// follow a code fence.
func (a *accumulator) result() string {
	return strings.ReplaceAll(stripFences(a.buf.String()), pythonMarker, "")
}

func stripFences(s string) string {
	return strings.ReplaceAll(s, "`", "")
}
