package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	errSourceRead = errors.New("reading source")
	errDestWrite  = errors.New("writing destination")
	errStream     = errors.New("streaming completion")
)

type job struct {
	Source    string
	Dest      string
	Example   string
	Language  string
	Framework string
}

// readSubject loads the source file and, when set, the example test file.
func readSubject(fs afero.Fs, j job) (subject, error) {
	code, err := afero.ReadFile(fs, j.Source)
	if err != nil {
		return subject{}, fmt.Errorf("%w %s: %w", errSourceRead, j.Source, err)
	}
	s := subject{Code: string(code), Language: j.Language, Framework: j.Framework}
	if j.Example != "" {
		example, err := afero.ReadFile(fs, j.Example)
		if err != nil {
			return subject{}, fmt.Errorf("%w %s: %w", errSourceRead, j.Example, err)
		}
		s.Example = string(example)
	}
	return s, nil
}

// collect drains the stream into acc. onFragment, when set, runs for every
// non-empty fragment before it is echoed, so console state can be cleared
// ahead of the first write.
func collect(ctx context.Context, c completer, p prompt, acc *accumulator, onFragment func(fragment)) error {
	echoFailed := false
	for f, err := range c.Stream(ctx, p) {
		if err != nil {
			return fmt.Errorf("%w: %w", errStream, err)
		}
		if f.empty() {
			continue
		}
		if onFragment != nil {
			onFragment(f)
		}
		if err := acc.add(f); err != nil && !echoFailed {
			echoFailed = true
			log.Warn().Err(err).Msg("Failed to echo fragment")
		}
	}
	return nil
}

// generateTests runs read, prompt, stream and write in that order. The
// destination is only touched once the stream has been fully consumed.
func generateTests(ctx context.Context, fs afero.Fs, c completer, tpl promptTemplate, j job, echo io.Writer, onFragment func(fragment)) (int, error) {
	timer := time.Now()

	s, err := readSubject(fs, j)
	if err != nil {
		return 0, err
	}

	p, err := buildMessages(tpl, s)
	if err != nil {
		return 0, err
	}

	log.Debug().Str("source", j.Source).Bool("templated", s.Example != "").Msg("Beginning generation")

	acc := newAccumulator(echo)
	if err := collect(ctx, c, p, acc, onFragment); err != nil {
		return 0, err
	}

	out := acc.result()
	if err := afero.WriteFile(fs, j.Dest, []byte(out), outputPerm); err != nil {
		return 0, fmt.Errorf("%w %s: %w", errDestWrite, j.Dest, err)
	}

	log.Info().
		Str("source", j.Source).
		Str("dest", j.Dest).
		Int("fragments", acc.fragments()).
		Int("bytes", len(out)).
		TimeDiff("elapsed", time.Now(), timer).
		Msg("Finished generation")
	return len(out), nil
}
