package blockdevice

import "github.com/prometheus/client_golang/prometheus"

// SectorsCounter exposes the transferred sectors counter to tests.
func SectorsCounter(operation string) prometheus.Counter {
	return deviceSectors.WithLabelValues(operation)
}
