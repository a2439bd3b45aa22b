package scheduler

import (
	"log/slog"
	"time"
)

// DefaultPollInterval bounds how long Wait sleeps without a wake-up signal.
const DefaultPollInterval = time.Millisecond

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStrategy sets the selection strategy (default FIFO).
func WithStrategy(s Strategy) Option {
	return func(sc *Scheduler) {
		sc.strategy = s
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(sc *Scheduler) {
		if l != nil {
			sc.logger = l
		}
	}
}

// WithMetricsObserver sets the metrics observer.
func WithMetricsObserver(mo MetricsObserver) Option {
	return func(sc *Scheduler) {
		if mo != nil {
			sc.metrics = mo
		}
	}
}

// WithPollInterval sets the fallback poll interval of Wait.
func WithPollInterval(d time.Duration) Option {
	return func(sc *Scheduler) {
		if d > 0 {
			sc.pollInterval = d
		}
	}
}
