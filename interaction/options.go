package interaction

import (
	"errors"
	"log/slog"

	"github.com/royalcat/cafemap/debugsink"
)

var ErrNoClusterIndex = errors.New("cluster index is not ready")

type options struct {
	config Config
	sink   *debugsink.Sink
	logger *slog.Logger
}

type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

func WithConfig(cfg Config) Option {
	return optionFunc(func(o *options) {
		o.config = cfg
	})
}

// WithDebugSink overrides the sink built from Config.Debug.
func WithDebugSink(sink *debugsink.Sink) Option {
	return optionFunc(func(o *options) {
		o.sink = sink
	})
}

func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

func loadOptions(opts ...Option) options {
	o := options{
		config: ConfigDefault(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.sink == nil {
		o.sink = debugsink.New(o.config.Debug, o.logger)
	}
	return o
}
