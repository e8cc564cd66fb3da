package main

import (
	"context"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// remoteGenerate has a testgen server run the completion and writes the
// result locally. Nothing is written unless stream_end arrives.
func remoteGenerate(ctx context.Context, fs afero.Fs, url, token string, j job, echo io.Writer, onFragment func(fragment)) (int, error) {
	s, err := readSubject(fs, j)
	if err != nil {
		return 0, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: dialing %s: %w", errStream, url, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	msg := streamMessage{
		Token:     token,
		Source:    s.Code,
		Example:   s.Example,
		Language:  s.Language,
		Framework: s.Framework,
	}
	if err := conn.WriteJSON(msg); err != nil {
		return 0, fmt.Errorf("%w: sending subject: %w", errStream, err)
	}

	acc := newAccumulator(echo)
	echoFailed := false
	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return 0, fmt.Errorf("%w: connection closed before stream end: %w", errStream, err)
		}

		switch ev.Event {
		case eventToken:
			f := fragment{Content: ev.Text}
			if onFragment != nil && !f.empty() {
				onFragment(f)
			}
			if err := acc.add(f); err != nil && !echoFailed {
				echoFailed = true
				log.Warn().Err(err).Msg("Failed to echo fragment")
			}
		case eventError:
			return 0, fmt.Errorf("%w: server: %s", errStream, ev.Message)
		case eventEnd:
			out := acc.result()
			if err := afero.WriteFile(fs, j.Dest, []byte(out), outputPerm); err != nil {
				return 0, fmt.Errorf("%w %s: %w", errDestWrite, j.Dest, err)
			}
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Debug().Err(err).Msg("failed to send close message to server")
			}
			log.Info().Str("dest", j.Dest).Int("fragments", acc.fragments()).Int("bytes", len(out)).Msg("Finished remote generation")
			return len(out), nil
		default:
			log.Warn().Str("event", ev.Event).Msg("Ignoring unknown event")
		}
	}
}
