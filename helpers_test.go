package main

import (
	"context"
	"iter"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeCompleter yields frags in order, then err if set.
type fakeCompleter struct {
	frags []string
	err   error

	mu    sync.Mutex
	calls int
	got   prompt
}

func (f *fakeCompleter) Stream(_ context.Context, p prompt) iter.Seq2[fragment, error] {
	f.mu.Lock()
	f.calls++
	f.got = p
	f.mu.Unlock()

	return func(yield func(fragment, error) bool) {
		for _, s := range f.frags {
			if !yield(fragment{Content: s}, nil) {
				return
			}
		}
		if f.err != nil {
			yield(fragment{}, f.err)
		}
	}
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCompleter) lastPrompt() prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

func signToken(t *testing.T, secret, sub string, allowed bool) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          sub,
		"app_metadata": map[string]any{"generate": allowed},
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// orderLog records echo writes and notifications in a single sequence.
type orderLog struct {
	mu     sync.Mutex
	events []string
}

func (o *orderLog) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "echo:"+string(p))
	return len(p), nil
}

func (o *orderLog) notify(f fragment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "notify:"+f.Content)
}

func (o *orderLog) sequence() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}
