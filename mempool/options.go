package mempool

import (
	"log/slog"

	"github.com/hupe1980/cmxrt/resource"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetricsObserver sets the metrics observer.
func WithMetricsObserver(mo MetricsObserver) Option {
	return func(m *Manager) {
		if mo != nil {
			m.metrics = mo
		}
	}
}

// WithResourceController reserves the backing block from a shared budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(m *Manager) {
		m.rc = rc
	}
}

// WithHeapBacking allocates the backing block on the Go heap instead of an
// anonymous mapping.
func WithHeapBacking() Option {
	return func(m *Manager) {
		m.heapBacking = true
	}
}

// WithFloors overrides the minimum pool sizes. Negative values are treated
// as zero.
func WithFloors(tensor, temp, general int) Option {
	return func(m *Manager) {
		m.floors = Floors{
			Tensor:     max(tensor, 0),
			TempBuffer: max(temp, 0),
			General:    max(general, 0),
		}
	}
}
