package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	providerOpenAI = "openai"
	providerOllama = "ollama"
)

var errConsumerStopped = errors.New("consumer stopped reading")

// fragment is one increment of a streamed completion. An empty Content means
// the increment carried no text.
type fragment struct {
	Content string
}

func (f fragment) empty() bool {
	return f.Content == ""
}

// completer issues one streaming chat completion per call. The returned
// sequence ends after the first error.
type completer interface {
	Stream(ctx context.Context, p prompt) iter.Seq2[fragment, error]
}

func newCompleter(ctx context.Context, cfg config, baseURL string) (completer, error) {
	switch cfg.Provider {
	case providerOpenAI:
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing openai model %q: %w", cfg.Model, err)
		}
		return &einoCompleter{model: m}, nil
	case providerOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if baseURL != "" {
			opts = append(opts, ollama.WithServerURL(baseURL))
		}
		m, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama model %q: %w", cfg.Model, err)
		}
		return &langchainCompleter{model: m}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

type chatStreamer interface {
	Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error)
}

type einoCompleter struct {
	model chatStreamer
}

func (c *einoCompleter) Stream(ctx context.Context, p prompt) iter.Seq2[fragment, error] {
	return func(yield func(fragment, error) bool) {
		sr, err := c.model.Stream(ctx, []*schema.Message{
			schema.SystemMessage(p.System),
			schema.UserMessage(p.User),
		})
		if err != nil {
			yield(fragment{}, err)
			return
		}
		defer sr.Close()

		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(fragment{}, err)
				return
			}
			var f fragment
			if msg != nil {
				f.Content = msg.Content
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

// langchainCompleter turns the push-style streaming callback of a langchaingo
// model into a sequence. The callback runs synchronously inside GenerateContent.
type langchainCompleter struct {
	model llms.Model
}

func (c *langchainCompleter) Stream(ctx context.Context, p prompt) iter.Seq2[fragment, error] {
	return func(yield func(fragment, error) bool) {
		stopped := false
		content := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, p.System),
			llms.TextParts(llms.ChatMessageTypeHuman, p.User),
		}

		_, err := c.model.GenerateContent(ctx, content,
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if stopped {
					return errConsumerStopped
				}
				if !yield(fragment{Content: string(chunk)}, nil) {
					stopped = true
					return errConsumerStopped
				}
				return nil
			}),
		)
		if err != nil && !stopped {
			yield(fragment{}, err)
		}
	}
}
