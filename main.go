package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"testgen/sample"
)

type cli struct {
	fs     afero.Fs
	v      *viper.Viper
	cfg    config
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{fs: afero.NewOsFs(), v: newViper(), stdout: os.Stdout, stderr: os.Stderr}
	if err := c.rootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("testgen failed")
		stop()
		os.Exit(1)
	}
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "testgen",
		Short:         "Generate unit test suites with a chat-completion model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(c.v)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return setupLogger(cfg.LogLevel, cfg.LogFormat, c.stderr)
		},
	}

	pf := root.PersistentFlags()
	pf.String("provider", defaultProvider, "completion provider: openai or ollama")
	pf.StringP("model", "m", defaultModel, "model identifier")
	pf.String("base-url", "", "provider base URL (defaults to the provider's own)")
	pf.String("api-key", "", "provider API key")
	pf.String("endpoints", "", "JSON file of weighted upstream base URLs")
	pf.String("prompts", "", "YAML file overriding the prompt templates")
	pf.String("language", defaultLanguage, "language of the subject code")
	pf.String("framework", defaultFramework, "test framework to ask for")
	pf.String("log-level", "info", "log level")
	pf.String("log-format", "console", "log format: console or json")
	bindFlags(c.v, pf, map[string]string{
		"provider":   "provider",
		"model":      "model",
		"base-url":   "base_url",
		"api-key":    "api_key",
		"endpoints":  "endpoints",
		"prompts":    "prompts",
		"language":   "language",
		"framework":  "framework",
		"log-level":  "log_level",
		"log-format": "log_format",
	})

	root.AddCommand(c.generateCommand(), c.serveCommand(), c.remoteCommand(), c.sampleCommand())
	return root
}

func (c *cli) generateCommand() *cobra.Command {
	var out, example string
	cmd := &cobra.Command{
		Use:   "generate <source>",
		Short: "Generate a test suite for one source file",
		Long:  "Streams a completion for the source file, echoes it to stdout and overwrites the destination once the stream ends. The destination defaults to the source file itself.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			tpl, err := loadPrompts(c.fs, c.cfg.Prompts)
			if err != nil {
				return err
			}
			baseURL, err := resolveBaseURL(ctx, c.fs, c.cfg)
			if err != nil {
				return err
			}
			comp, err := newCompleter(ctx, c.cfg, baseURL)
			if err != nil {
				return err
			}

			j := c.job(args[0], out, example)
			wait := startWaitIndicator(c.stderr, "waiting for "+c.cfg.Model)
			n, err := generateTests(ctx, c.fs, comp, tpl, j, c.stdout, func(fragment) { wait.stop() })
			wait.stop()
			if err != nil {
				printFailure(c.stderr, err)
				return err
			}
			printSummary(c.stderr, n, j.Dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (defaults to the source file)")
	cmd.Flags().StringVarP(&example, "example", "e", "", "existing test file to use as a template")
	return cmd
}

func (c *cli) remoteCommand() *cobra.Command {
	var out, example, url, token string
	cmd := &cobra.Command{
		Use:   "remote <source>",
		Short: "Generate a test suite through a testgen server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return errors.New("--url is required")
			}
			j := c.job(args[0], out, example)
			wait := startWaitIndicator(c.stderr, "waiting for "+url)
			n, err := remoteGenerate(cmd.Context(), c.fs, url, token, j, c.stdout, func(fragment) { wait.stop() })
			wait.stop()
			if err != nil {
				printFailure(c.stderr, err)
				return err
			}
			printSummary(c.stderr, n, j.Dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (defaults to the source file)")
	cmd.Flags().StringVarP(&example, "example", "e", "", "existing test file to use as a template")
	cmd.Flags().StringVar(&url, "url", "", "websocket URL of the server's /stream endpoint")
	cmd.Flags().StringVar(&token, "token", os.Getenv("TESTGEN_TOKEN"), "JWT presented to the server")
	return cmd
}

func (c *cli) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve test generation over HTTP and websocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.validateServe(); err != nil {
				return err
			}
			tpl, err := loadPrompts(c.fs, c.cfg.Prompts)
			if err != nil {
				return err
			}

			var pool *replicaManager
			if c.cfg.Endpoints != "" {
				pool = newReplicaManager(nil)
				if err := pool.loadReplicas(c.fs, c.cfg.Endpoints); err != nil {
					return err
				}
			}
			cfg := c.cfg
			factory := func(ctx context.Context) (completer, error) {
				baseURL := cfg.BaseURL
				if pool != nil {
					host, err := pool.pick(ctx)
					if err != nil {
						return nil, err
					}
					baseURL = host
				}
				return newCompleter(ctx, cfg, baseURL)
			}

			app := newServer(cfg, tpl, factory).app()
			go func() {
				<-cmd.Context().Done()
				if err := app.Shutdown(); err != nil {
					log.Err(err).Msg("Failed to shut down")
				}
			}()
			log.Info().Str("addr", cfg.Addr).Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("Serving")
			return app.Listen(cfg.Addr)
		},
	}

	f := cmd.Flags()
	f.String("addr", defaultAddr, "listen address")
	f.String("jwt-secret", "", "HMAC secret used to verify client tokens")
	f.Uint("max-concurrent", defaultMaxConcurrent, "upstream completions allowed at once")
	f.Duration("stream-timeout", defaultStreamTimeout, "longest wait between fragments")
	bindFlags(c.v, f, map[string]string{
		"addr":           "addr",
		"jwt-secret":     "jwt_secret",
		"max-concurrent": "max_concurrent",
		"stream-timeout": "stream_timeout",
	})
	return cmd
}

func (c *cli) sampleCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Run the sample web service used as a generation subject",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := sample.New()
			go func() {
				<-cmd.Context().Done()
				_ = app.Shutdown()
			}()
			log.Info().Str("addr", addr).Msg("Serving sample application")
			return app.Listen(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultSampleAddr, "listen address")
	return cmd
}

func (c *cli) job(source, out, example string) job {
	if out == "" {
		out = source
	}
	return job{
		Source:    source,
		Dest:      out,
		Example:   example,
		Language:  c.cfg.Language,
		Framework: c.cfg.Framework,
	}
}

// resolveBaseURL picks one upstream when an endpoints file is configured.
func resolveBaseURL(ctx context.Context, fs afero.Fs, cfg config) (string, error) {
	if cfg.Endpoints == "" {
		return cfg.BaseURL, nil
	}
	pool := newReplicaManager(nil)
	if err := pool.loadReplicas(fs, cfg.Endpoints); err != nil {
		return "", err
	}
	return pool.pick(ctx)
}
