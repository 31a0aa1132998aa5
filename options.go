package conform

import (
	"github.com/rs/zerolog"

	"github.com/artpar/conform/core/validation"
)

// Option adjusts validation behavior. Passed to Compile it fixes the
// schema's defaults; passed to Validate it overrides them for one call.
type Option func(*validation.Config)

func applyOptions(cfg validation.Config, opts []Option) validation.Config {
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithMaxDepth bounds schema recursion. Exceeding the bound aborts the
// call with a DepthError. The default is validation.DefaultMaxDepth.
func WithMaxDepth(limit int) Option {
	return func(cfg *validation.Config) {
		cfg.MaxDepth = limit
	}
}

// WithFailFast stops validation at the first diagnostic instead of
// collecting every failure.
func WithFailFast() Option {
	return func(cfg *validation.Config) {
		cfg.FailFast = true
	}
}

// WithCollectAll restores collection of every diagnostic, overriding a
// compile-time WithFailFast for one call.
func WithCollectAll() Option {
	return func(cfg *validation.Config) {
		cfg.FailFast = false
	}
}

// WithMultipleOfEpsilon sets the tolerance multipleOf applies to
// non-integral divisors. The default is validation.DefaultEpsilon.
func WithMultipleOfEpsilon(eps float64) Option {
	return func(cfg *validation.Config) {
		cfg.Epsilon = eps
	}
}

// WithLogger routes engine traces to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cfg *validation.Config) {
		cfg.Logger = log
	}
}

// WithObserver registers an observer notified of every validation
// outcome, such as the Prometheus collector in core/metrics.
func WithObserver(obs validation.Observer) Option {
	return func(cfg *validation.Config) {
		cfg.Observer = obs
	}
}
