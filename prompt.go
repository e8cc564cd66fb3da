package main

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	defaultSystemPrompt = "Junior developer with only a few months of experience"

	defaultUserPrompt = "I've written a {{.Language}} script, and I'd like you to help me create a full suite of unit tests for it. " +
		"Make use of {{.Framework}} as the testing library. Here's the code:\n\n{{.Code}}\n\n" +
		"Please only provide the code so that it can run as is. Do not add any additional information or comments. Just the pure code."

	defaultTemplatedUserPrompt = "I've written a {{.Language}} script, and I'd like you to help me create a full suite of unit tests for it. " +
		"Make use of {{.Framework}} as the testing library. Here's the code:\n\n{{.Code}}\n\n" +
		"Follow the structure and style of this existing test file:\n\n{{.Example}}\n\n" +
		"Please only provide the code so that it can run as is. Do not add any additional information or comments. Just the pure code."
)

type promptTemplate struct {
	System        string `yaml:"system"`
	User          string `yaml:"user"`
	TemplatedUser string `yaml:"templated_user"`
}

// subject is what gets interpolated into the user prompt.
type subject struct {
	Code      string
	Example   string
	Language  string
	Framework string
}

type prompt struct {
	System string
	User   string
}

func defaultPrompts() promptTemplate {
	return promptTemplate{
		System:        defaultSystemPrompt,
		User:          defaultUserPrompt,
		TemplatedUser: defaultTemplatedUserPrompt,
	}
}

// loadPrompts overlays the non-empty fields of a YAML file onto the defaults.
// An empty path returns the defaults.
func loadPrompts(fs afero.Fs, path string) (promptTemplate, error) {
	tpl := defaultPrompts()
	if path == "" {
		return tpl, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return tpl, fmt.Errorf("reading prompts %s: %w", path, err)
	}

	var override promptTemplate
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tpl, fmt.Errorf("parsing prompts %s: %w", path, err)
	}

	if override.System != "" {
		tpl.System = override.System
	}
	if override.User != "" {
		tpl.User = override.User
	}
	if override.TemplatedUser != "" {
		tpl.TemplatedUser = override.TemplatedUser
	}
	return tpl, nil
}

func buildMessages(tpl promptTemplate, s subject) (prompt, error) {
	text := tpl.User
	if s.Example != "" {
		text = tpl.TemplatedUser
	}

	t, err := template.New("user").Option("missingkey=error").Parse(text)
	if err != nil {
		return prompt{}, fmt.Errorf("parsing user prompt: %w", err)
	}

	var b strings.Builder
	if err := t.Execute(&b, s); err != nil {
		return prompt{}, fmt.Errorf("rendering user prompt: %w", err)
	}

	return prompt{System: tpl.System, User: b.String()}, nil
}
