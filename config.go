package sandclock

import (
	"errors"
	"fmt"
	"os"
)

const (
	defaultIterations = 1
	defaultPrecision  = 5

	consoleSink = "console"
	logSink     = "log"
)

var (
	ErrInvalidIterations = errors.New("sandclock: iterations must be positive")
	ErrInvalidPrecision  = errors.New("sandclock: precision must not be negative")
	ErrNilSink           = errors.New("sandclock: sink is nil")
	ErrUnknownSink       = errors.New("sandclock: unknown sink")
)

type (
	// Config is the configuration of a Clock, loadable with go-zero conf.
	Config struct {
		Iterations int    `json:",default=1"`
		Precision  int    `json:",default=5"`
		Verbose    bool   `json:",default=true"`
		Sink       string `json:",default=console,options=console|log"`
		Color      bool   `json:",default=true"`
	}

	// Option customizes a Clock.
	Option func(o *clockOptions)

	clockOptions struct {
		Config
		sink    Sink
		sinkSet bool
	}
)

// DefaultConfig returns the config with the same defaults as the conf tags.
func DefaultConfig() Config {
	return Config{
		Iterations: defaultIterations,
		Precision:  defaultPrecision,
		Verbose:    true,
		Sink:       consoleSink,
		Color:      true,
	}
}

// WithIterations sets the number of timed repetitions per call.
func WithIterations(n int) Option {
	return func(o *clockOptions) {
		o.Iterations = n
	}
}

// WithPrecision sets the decimal places used when reporting durations.
func WithPrecision(p int) Option {
	return func(o *clockOptions) {
		o.Precision = p
	}
}

// WithVerbose toggles the per-iteration reports.
func WithVerbose(verbose bool) Option {
	return func(o *clockOptions) {
		o.Verbose = verbose
	}
}

// WithSink replaces the sink selected by the config.
func WithSink(sink Sink) Option {
	return func(o *clockOptions) {
		o.sink = sink
		o.sinkSet = true
	}
}

func (o *clockOptions) validate() error {
	if o.Iterations < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, o.Iterations)
	}
	if o.Precision < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPrecision, o.Precision)
	}
	if o.sinkSet && o.sink == nil {
		return ErrNilSink
	}

	return nil
}

func (o *clockOptions) buildSink() (Sink, error) {
	if o.sinkSet {
		return o.sink, nil
	}

	switch o.Config.Sink {
	case "", consoleSink:
		return ConsoleSink(os.Stdout, o.Color), nil
	case logSink:
		return LogSink(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, o.Config.Sink)
	}
}
