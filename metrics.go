package nasc

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics records resolution activity. A nil *metrics records nothing.
type metrics struct {
	resolutions *prometheus.CounterVec
	builds      *prometheus.CounterVec
	duration    prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, namespace string) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "injector",
				Name:      "resolutions_total",
				Help:      "Total number of top-level resolutions by outcome",
			},
			[]string{"outcome"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "injector",
				Name:      "providers_built_total",
				Help:      "Total number of providers built by binding or factory kind",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "injector",
				Name:      "resolution_duration_seconds",
				Help:      "Time spent resolving top-level targets",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
	}

	var err error
	if m.resolutions, err = register(reg, m.resolutions); err != nil {
		return nil, err
	}
	if m.builds, err = register(reg, m.builds); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor, as happens when several injectors share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observeResolution(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrCircularDependency):
		outcome = "circular"
	case errors.Is(err, ErrNonInjectable):
		outcome = "non_injectable"
	case errors.Is(err, ErrNoBindingFound):
		outcome = "no_binding"
	default:
		outcome = "error"
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *metrics) providerBuilt(kind string) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(kind).Inc()
}
