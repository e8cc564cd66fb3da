package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// waitIndicator spins on a terminal until the first fragment shows up.
type waitIndicator struct {
	s    *spinner.Spinner
	once sync.Once
}

func startWaitIndicator(w io.Writer, msg string) *waitIndicator {
	wi := &waitIndicator{}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return wi
	}
	wi.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	wi.s.Suffix = " " + msg
	wi.s.Start()
	return wi
}

func (wi *waitIndicator) stop() {
	wi.once.Do(func() {
		if wi.s != nil {
			wi.s.Stop()
		}
	})
}

func printSummary(w io.Writer, n int, dest string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.GreenString("wrote %s to %s", humanize.Bytes(uint64(n)), dest))
}

func printFailure(w io.Writer, err error) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.RedString("generation failed: %v", err))
}
