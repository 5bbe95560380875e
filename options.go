package tiler

import (
	"log/slog"

	"github.com/gogpu/tiler/internal/parallel"
)

// Option configures a Scheduler during creation.
//
// Example:
//
//	s := tiler.New(
//	    tiler.WithQueueCapacity(64),
//	    tiler.WithVectorLanes(8),
//	)
type Option func(*options)

// options holds optional configuration for a Scheduler.
type options struct {
	queueCapacity int
	lanes         int
	arenaBudget   int
	logger        *slog.Logger
}

// defaultOptions returns the default scheduler options.
func defaultOptions() options {
	return options{
		queueCapacity: parallel.DefaultQueueCapacity,
		lanes:         0, // detected from CPU features at Setup
		arenaBudget:   0, // sized from the layout at Setup
		logger:        nil,
	}
}

// WithQueueCapacity sets how many jobs of each kind a tile can hold.
// Submissions beyond the capacity are dropped. Values <= 0 keep the default
// of 32.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithVectorLanes overrides the pixel batch width. Only 4 and 8 are
// accepted; other values keep CPU detection.
func WithVectorLanes(n int) Option {
	return func(o *options) {
		if n == 4 || n == 8 {
			o.lanes = n
		}
	}
}

// WithArenaBudget fixes the size of the memory pool in bytes. Setup fails
// with ErrConfig if the layout does not fit. By default the pool is sized to
// twice what the layout needs.
func WithArenaBudget(bytes int) Option {
	return func(o *options) {
		if bytes > 0 {
			o.arenaBudget = bytes
		}
	}
}

// WithLogger sets the logger for one scheduler, overriding SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
