package internal

import (
	"io"

	"github.com/starford/gamewatch/internal/scanner"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	output  io.Writer
	// cardSource replaces the serial reader, for tests.
	cardSource scanner.Source
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithOutput sets where JSON logs are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.output = w
	}
}

// WithCardSource makes the card scanner read ids from src instead of the
// configured serial port.
func WithCardSource(src scanner.Source) Option {
	return func(a *application) {
		a.cardSource = src
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
