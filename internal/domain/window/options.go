package window

import "github.com/okian/followup/internal/domain/model"

type config struct {
	originFilter model.Kind
}

// Option applies a configuration option to an aggregation.
type Option func(*config)

// WithOriginFilter restricts which origin kind counts toward OriginCount.
// An empty kind keeps the full origin set.
func WithOriginFilter(kind model.Kind) Option {
	return func(c *config) {
		c.originFilter = kind
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
