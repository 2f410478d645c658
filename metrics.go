package fat16

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	volumeMetricsOnce sync.Once

	volumeOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fat16",
			Subsystem: "volume",
			Name:      "operations_total",
			Help:      "Number of volume operations, by operation and result.",
		},
		[]string{"operation", "result"})
)

func registerMetrics() {
	volumeMetricsOnce.Do(func() {
		prometheus.MustRegister(volumeOperations)
	})
}

// result maps an error onto a metric label.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExist):
		return "exists"
	case errors.Is(err, ErrNoSpace):
		return "no_space"
	case errors.Is(err, ErrDevice):
		return "device_error"
	default:
		return "error"
	}
}

func observe(operation string, err error) {
	volumeOperations.WithLabelValues(operation, result(err)).Inc()
}
