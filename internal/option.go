package internal

import (
	"io"

	"github.com/starford/corkboard/internal/ai"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	generator ai.Generator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sends logs to w instead of stdout. The MCP command needs
// this because stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithGenerator replaces the model client built from the ai config.
func WithGenerator(g ai.Generator) Option {
	return func(a *application) {
		a.generator = g
	}
}
