package main

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

func setupLogger(level, format string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return nil
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	return nil
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDHeader).(string); ok {
		return id
	}
	return ""
}

func logWriteErr(c *fiber.Ctx, err error, msg string, status int) error {
	log.Error().
		Str("request_id", requestID(c)).
		Int("status", status).
		Err(err).
		Msg(msg)
	return c.Status(status).SendString(msg)
}

// loggerMiddleware logs when the handler returns. For streamed bodies that is
// before the body has been written.
func loggerMiddleware(c *fiber.Ctx) error {
	startTime := time.Now()

	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDHeader, id)
	c.Set(requestIDHeader, id)

	logger := log.With().Str("request_id", id).Logger()
	logger.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("remote_addr", c.IP()).
		Msg("received")

	err := c.Next()

	logger.Info().
		Int("status", c.Response().StatusCode()).
		Dur("response_time", time.Since(startTime)).
		Msg("completed")
	return err
}
