package worker

import (
	"time"

	"github.com/okian/battletrack/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithThrottle sets the pause between queue items.
func WithThrottle(d time.Duration) Option {
	return func(w *Worker) {
		if d >= 0 {
			w.throttle = d
		}
	}
}

// WithBatchSize sets how many match details are fetched per batch.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}
