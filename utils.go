package main

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
)

const (
	eventToken = "token"
	eventEnd   = "stream_end"
	eventError = "error"
)

type streamEvent struct {
	Event   string `json:"event"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

func logBroadcastError(c *websocket.Conn, errMsg string, err error) {
	log.Error().Err(err).Msg(errMsg)
	if werr := c.WriteJSON(streamEvent{Event: eventError, Message: errMsg}); werr != nil {
		log.Err(werr).Msg("failed to send error event to client")
	}
}
