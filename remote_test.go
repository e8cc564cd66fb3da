package main

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, srv *server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := srv.app()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/stream"
}

func remoteContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRemoteGenerate(t *testing.T) {
	comp := &fakeCompleter{frags: []string{"```", "python\n", "def test_f(): assert f() == ", "1\n```"}}
	url := startServer(t, newTestServer(comp))

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "app.py", "def f(): return 1")
	var echo strings.Builder
	var seen int

	n, err := remoteGenerate(remoteContext(t), fs, url, signToken(t, testSecret, "alice", true), newJob("app.py", "test_app.py"), &echo, func(fragment) { seen++ })
	require.NoError(t, err)

	want := "\ndef test_f(): assert f() == 1\n"
	assert.Equal(t, want, readFile(t, fs, "test_app.py"))
	assert.Equal(t, len(want), n)
	assert.Equal(t, "```python\ndef test_f(): assert f() == 1\n```", echo.String())
	assert.Equal(t, 4, seen)
	assert.Contains(t, comp.lastPrompt().User, "def f(): return 1")
}

func TestRemoteGenerateEmptyStream(t *testing.T) {
	url := startServer(t, newTestServer(&fakeCompleter{}))

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "app.py", "code")
	writeFile(t, fs, "out.py", "previous")

	_, err := remoteGenerate(remoteContext(t), fs, url, signToken(t, testSecret, "alice", true), newJob("app.py", "out.py"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", readFile(t, fs, "out.py"))
}

func TestRemoteGenerateUpstreamError(t *testing.T) {
	comp := &fakeCompleter{frags: []string{"def test_a():"}, err: errors.New("rate limited")}
	url := startServer(t, newTestServer(comp))

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "app.py", "code")

	_, err := remoteGenerate(remoteContext(t), fs, url, signToken(t, testSecret, "alice", true), newJob("app.py", "app.py"), nil, nil)
	require.ErrorIs(t, err, errStream)
	assert.Contains(t, err.Error(), "failed to retrieve token from LLM")
	assert.Equal(t, "code", readFile(t, fs, "app.py"))
}

func TestRemoteGenerateUnauthorized(t *testing.T) {
	comp := &fakeCompleter{frags: []string{"x"}}
	url := startServer(t, newTestServer(comp))

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "app.py", "code")

	_, err := remoteGenerate(remoteContext(t), fs, url, signToken(t, "wrong", "alice", true), newJob("app.py", "out.py"), nil, nil)
	require.ErrorIs(t, err, errStream)
	assert.Zero(t, comp.callCount())

	exists, err := afero.Exists(fs, "out.py")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoteGenerateMissingSource(t *testing.T) {
	_, err := remoteGenerate(context.Background(), afero.NewMemMapFs(), "ws://127.0.0.1:1/stream", "token", newJob("missing.py", "out.py"), nil, nil)
	require.ErrorIs(t, err, errSourceRead)
}

func TestRemoteGenerateDialFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "app.py", "code")

	_, err := remoteGenerate(context.Background(), fs, "ws://127.0.0.1:1/stream", "token", newJob("app.py", "out.py"), nil, nil)
	require.ErrorIs(t, err, errStream)
}

func TestRemoteGenerateNotifiesBeforeEcho(t *testing.T) {
	comp := &fakeCompleter{frags: []string{"```python\n", "x"}}
	url := startServer(t, newTestServer(comp))

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "app.py", "code")

	var order orderLog
	_, err := remoteGenerate(remoteContext(t), fs, url, signToken(t, testSecret, "alice", true), newJob("app.py", "out.py"), &order, order.notify)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"notify:```python\n", "echo:```python\n",
		"notify:x", "echo:x",
	}, order.sequence())
}
