package main

import (
	"context"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// completerFactory builds a fresh completer for one request.
type completerFactory func(ctx context.Context) (completer, error)

type server struct {
	cfg          config
	prompts      promptTemplate
	newCompleter completerFactory
	auth         *authenticator
	queue        *queue
	lock         *nLock
}

func newServer(cfg config, prompts promptTemplate, factory completerFactory) *server {
	return &server{
		cfg:          cfg,
		prompts:      prompts,
		newCompleter: factory,
		auth:         newAuthenticator(cfg.JWTSecret),
		queue:        newQueue(),
		lock:         newNLock(cfg.MaxConcurrent),
	}
}

func (s *server) app() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(loggerMiddleware)

	app.Get("/healthz", s.handleHealth)
	app.Post("/generate", s.auth.middleware, s.handleGenerate)

	app.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/stream", websocket.New(s.stream))
	return app
}

func (s *server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"active":    s.queue.active(),
		"upstreams": s.lock.held(),
	})
}

// admit reserves the subject and an upstream slot. The returned func releases
// both.
func (s *server) admit(ctx context.Context, sub string) (func(), error) {
	if err := s.queue.enter(sub); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StreamTimeout)
	defer cancel()
	if err := s.lock.lock(ctx); err != nil {
		s.queue.release(sub)
		return nil, err
	}

	return func() {
		s.lock.unlock()
		s.queue.release(sub)
	}, nil
}

func (s *server) subjectFor(source, example, language, framework string) subject {
	sj := subject{Code: source, Example: example, Language: s.cfg.Language, Framework: s.cfg.Framework}
	if language != "" {
		sj.Language = language
	}
	if framework != "" {
		sj.Framework = framework
	}
	return sj
}

func admitStatus(err error) int {
	if errors.Is(err, errBusy) {
		return fiber.StatusTooManyRequests
	}
	return fiber.StatusServiceUnavailable
}
