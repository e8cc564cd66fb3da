package main

import "time"

const (
	defaultProvider      = "openai"
	defaultModel         = "gpt-4o-mini"
	defaultLanguage      = "Python"
	defaultFramework     = "pytest"
	defaultAddr          = ":8080"
	defaultSampleAddr    = ":8000"
	defaultMaxConcurrent = 1
	defaultStreamTimeout = 10 * time.Second

	pingTimeout  = 2 * time.Second
	envPrefix    = "TESTGEN"
	configName   = "testgen"
	outputPerm   = 0o644
	pythonMarker = "python"
)
