package event

import "github.com/dshills/modelundo/internal/logging"

// BusOption configures an event Bus.
type BusOption func(*busConfig)

type busConfig struct {
	// panicHandler is called when a handler panics.
	panicHandler PanicHandler

	// propagatePanics re-raises handler panics after reporting them.
	propagatePanics bool

	logger *logging.Logger
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger: logging.NullLogger,
	}
}

// WithBusPanicHandler sets the panic handler for the bus.
func WithBusPanicHandler(h PanicHandler) BusOption {
	return func(c *busConfig) {
		if h != nil {
			c.panicHandler = h
		}
	}
}

// WithPanicPropagation re-raises handler panics in the publisher once they
// have been logged and passed to the panic handler.
func WithPanicPropagation(enabled bool) BusOption {
	return func(c *busConfig) {
		c.propagatePanics = enabled
	}
}

// WithLogger sets the logger used for handler failures.
func WithLogger(l *logging.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
