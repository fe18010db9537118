package headless

import (
	"log/slog"
	"time"

	"github.com/royalcat/cafemap/supercluster"
)

// DefaultFrame is the frame length resize bursts are coalesced over.
const DefaultFrame = 16 * time.Millisecond

type options struct {
	logger  *slog.Logger
	cluster supercluster.Options
	frame   time.Duration
}

type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

// WithClusterOptions configures the clustered marker source.
func WithClusterOptions(opts supercluster.Options) Option {
	return optionFunc(func(o *options) {
		o.cluster = opts
	})
}

func WithFrame(frame time.Duration) Option {
	return optionFunc(func(o *options) {
		o.frame = frame
	})
}

func loadOptions(opts ...Option) options {
	o := options{
		logger:  slog.Default(),
		cluster: supercluster.DefaultOptions(),
		frame:   DefaultFrame,
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.cluster.Logger == nil {
		o.cluster.Logger = o.logger
	}
	return o
}
