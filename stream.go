package main

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
)

type streamMessage struct {
	Token     string `json:"token"`
	Source    string `json:"source"`
	Example   string `json:"example,omitempty"`
	Language  string `json:"language,omitempty"`
	Framework string `json:"framework,omitempty"`
}

// stream serves one generation per connection. The first client message
// carries the token and the subject; every fragment goes back as a token
// event, followed by stream_end or a single error event.
func (s *server) stream(c *websocket.Conn) {
	defer c.Close()

	var msg streamMessage
	if err := c.ReadJSON(&msg); err != nil {
		logBroadcastError(c, "failed to parse message from client", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Control frames are only processed while someone reads, and a read error
	// is how we learn that the client hung up. The wrapper goes back to a pool
	// once this handler returns, so the reader holds the underlying conn and
	// must exit first.
	conn := c.Conn
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() { <-readerDone }()
	defer conn.Close()

	log.Info().Str("ip", c.RemoteAddr().String()).Int("source_bytes", len(msg.Source)).Msg("successfully received message from client")

	sub, err := s.auth.auth(msg.Token)
	if err != nil {
		logBroadcastError(c, "unauthorised access token", err)
		return
	}
	if msg.Source == "" {
		logBroadcastError(c, "source must not be empty", nil)
		return
	}

	p, err := buildMessages(s.prompts, s.subjectFor(msg.Source, msg.Example, msg.Language, msg.Framework))
	if err != nil {
		logBroadcastError(c, "failed to build prompt", err)
		return
	}

	release, err := s.admit(ctx, sub)
	if err != nil {
		logBroadcastError(c, "you can only access the LLM once at a given time", err)
		return
	}
	defer release()

	comp, err := s.newCompleter(ctx)
	if err != nil {
		logBroadcastError(c, "failed to establish connection with LLM", err)
		return
	}

	frags := make(chan fragment)
	errCh := make(chan error, 1)
	go func() {
		defer close(frags)
		for f, err := range comp.Stream(ctx, p) {
			if err != nil {
				errCh <- err
				return
			}
			if f.empty() {
				continue
			}
			select {
			case frags <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	timer := time.NewTimer(s.cfg.StreamTimeout)
	defer timer.Stop()

	for {
		select {
		case f, ok := <-frags:
			if !ok {
				select {
				case err := <-errCh:
					logBroadcastError(c, "failed to retrieve token from LLM", err)
				default:
					if err := c.WriteJSON(streamEvent{Event: eventEnd}); err != nil {
						log.Err(err).Msg("failed to send stream end to client")
					}
				}
				return
			}
			if err := c.WriteJSON(streamEvent{Event: eventToken, Text: f.Content}); err != nil {
				log.Err(err).Msg("failed to forward token to client")
				return
			}
			timer.Reset(s.cfg.StreamTimeout)
		case <-timer.C:
			logBroadcastError(c, "timeout reached, no response from LLM", nil)
			return
		case <-ctx.Done():
			log.Info().Msg("client closed the connection")
			return
		}
	}
}
