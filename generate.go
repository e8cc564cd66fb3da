package main

import (
	"bufio"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type generateRequest struct {
	Source    string `json:"source"`
	Example   string `json:"example"`
	Language  string `json:"language"`
	Framework string `json:"framework"`
}

// generateFailureMarker ends a /generate body whose upstream stream failed
// after the 200 status went out. A body ending in it is not a complete
// generation.
const generateFailureMarker = "\nFailed to retrieve token from LLM\n"

// handleGenerate streams the raw fragments back as plain text. Post-processing
// is left to the caller, who sees exactly what the model sent.
func (s *server) handleGenerate(c *fiber.Ctx) error {
	id := requestID(c)

	timer := time.Now()
	log.Info().Str("request_id", id).Msg("Initialising generate request")

	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return logWriteErr(c, err, "Invalid JSON object as input", fiber.StatusBadRequest)
	}
	if req.Source == "" {
		return logWriteErr(c, errors.New("empty source"), "Source must not be empty", fiber.StatusBadRequest)
	}

	p, err := buildMessages(s.prompts, s.subjectFor(req.Source, req.Example, req.Language, req.Framework))
	if err != nil {
		return logWriteErr(c, err, "Failed to build prompt", fiber.StatusInternalServerError)
	}

	sub, _ := c.Locals(subjectLocal).(string)
	log.Info().Str("request_id", id).Msg("Entering queue")
	queueTimer := time.Now()
	release, err := s.admit(c.UserContext(), sub)
	if err != nil {
		status := admitStatus(err)
		msg := "Can only access LLM once at a time"
		if status == fiber.StatusServiceUnavailable {
			msg = "LLM is at capacity, try again later"
		}
		return logWriteErr(c, err, msg, status)
	}
	log.Info().Str("request_id", id).TimeDiff("Time elapsed", time.Now(), queueTimer).Msg("Exiting queue")

	comp, err := s.newCompleter(c.UserContext())
	if err != nil {
		release()
		return logWriteErr(c, err, "Failed to prompt LLM", fiber.StatusBadGateway)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-cache")

	log.Info().Str("request_id", id).Msg("Beginning generation")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer release()
		defer func() {
			log.Info().Str("request_id", id).TimeDiff("Time elapsed", time.Now(), timer).Msg("Finishing request")
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		for f, err := range comp.Stream(ctx, p) {
			if err != nil {
				log.Error().Str("request_id", id).Err(err).Msg("Failed to retrieve token from LLM")
				_, _ = w.WriteString(generateFailureMarker)
				_ = w.Flush()
				return
			}
			if f.empty() {
				continue
			}
			if _, err := w.WriteString(f.Content); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				log.Info().Str("request_id", id).Err(err).Msg("Client went away")
				return
			}
		}
	})
	return nil
}
