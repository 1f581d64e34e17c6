package hash

import (
	"dinohash/pkg/config"
	"dinohash/pkg/logger"
)

type options struct {
	logger     *logger.Logger
	splitLimit int
	hasher     Hasher
}

func defaultOptions() options {
	return options{
		logger:     logger.Noop(),
		splitLimit: config.DefaultSplitLimit,
		hasher:     XxHasher,
	}
}

// Option configures a HashTable.
type Option func(*options)

// WithLogger sets the logger for split, doubling and open events.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSplitLimit sets how many splits one insertion may trigger before it
// is abandoned with a *DuplicationLimitError.
func WithSplitLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.splitLimit = n
		}
	}
}

// WithHasher sets the byte hasher behind the default key hash. It has no
// effect when an explicit HashFunc is given.
func WithHasher(h Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}
