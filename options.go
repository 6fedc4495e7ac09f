package arena

import "github.com/go-kit/log"

type options struct {
	logger  log.Logger
	backing BackingAllocator
	budget  *Budget
	metrics *Metrics
}

func defaultOptions() options {
	return options{
		logger:  log.NewNopLogger(),
		backing: DefaultBacking(),
	}
}

// Option configures an Arena.
type Option func(*options)

// WithLogger sets the logger used for lifecycle and failure events.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBacking sets where New acquires the owned buffer, DefaultBacking if
// unset. Ignored by NewWithBuffer.
func WithBacking(b BackingAllocator) Option {
	return func(o *options) {
		if b != nil {
			o.backing = b
		}
	}
}

// WithBudget charges the owned buffer against b. Ignored by NewWithBuffer.
func WithBudget(b *Budget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// WithMetrics records allocation activity in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
