package cmxrt

import (
	"github.com/hupe1980/cmxrt/config"
	"github.com/hupe1980/cmxrt/profiler"
	"github.com/hupe1980/cmxrt/resource"
)

type options struct {
	cfg      config.Config
	logger   *Logger
	metrics  MetricsObserver
	profiler *profiler.Profiler
	rc       *resource.Controller
}

// Option configures a Runtime.
type Option func(*options)

// WithConfig sets the runtime configuration. Unspecified fields take their
// defaults.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsObserver sets the observer for scheduler and pool events.
func WithMetricsObserver(mo MetricsObserver) Option {
	return func(o *options) {
		o.metrics = mo
	}
}

// WithProfiler times every step under its name. It overrides
// config.ProfilingConfig.
func WithProfiler(p *profiler.Profiler) Option {
	return func(o *options) {
		o.profiler = p
	}
}

// WithResourceController shares a memory budget and pass slots with other
// runtimes. Without it, a controller is created when
// config.MemoryConfig.LimitBytes is set.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}
