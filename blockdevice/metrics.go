package blockdevice

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	deviceMetricsOnce sync.Once

	deviceOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fat16",
			Subsystem: "blockdevice",
			Name:      "operations_total",
			Help:      "Number of sector read and write calls, by operation and result.",
		},
		[]string{"operation", "result"})
	deviceSectors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fat16",
			Subsystem: "blockdevice",
			Name:      "sectors_total",
			Help:      "Number of sectors successfully transferred, by operation.",
		},
		[]string{"operation"})
)

type metricsDevice struct {
	base Device
}

// NewMetricsDevice creates a decorator for Device that exposes Prometheus
// metrics on the number of sector reads and writes.
func NewMetricsDevice(base Device) Device {
	deviceMetricsOnce.Do(func() {
		prometheus.MustRegister(deviceOperations)
		prometheus.MustRegister(deviceSectors)
	})

	return &metricsDevice{
		base: base,
	}
}

func observe(operation string, count uint8, err error) {
	if err != nil {
		deviceOperations.WithLabelValues(operation, "error").Inc()
		return
	}
	deviceOperations.WithLabelValues(operation, "ok").Inc()
	deviceSectors.WithLabelValues(operation).Add(float64(count))
}

func (d *metricsDevice) ReadSectors(lba uint32, count uint8, p []byte) error {
	err := d.base.ReadSectors(lba, count, p)
	observe("read", count, err)
	return err
}

func (d *metricsDevice) WriteSectors(lba uint32, count uint8, p []byte) error {
	err := d.base.WriteSectors(lba, count, p)
	observe("write", count, err)
	return err
}

func (d *metricsDevice) Sectors() uint32 {
	return d.base.Sectors()
}
