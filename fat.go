package fat16

import (
	"encoding/binary"

	"github.com/aligator/fat16/checkpoint"
)

const (
	clusterFree  = 0x0000
	clusterFirst = 2
	clusterMax   = 0xFFEF
	clusterBad   = 0xFFF7
	// An entry value of clusterEOC or higher marks the end of a chain.
	clusterEOC = 0xFFF8
	// clusterEOCValue is written to mark the end of a chain.
	clusterEOCValue = 0xFFFF
)

func isEOC(v uint16) bool {
	return v >= clusterEOC
}

// fatTable is the in-memory copy of the File Allocation Table for the
// duration of one operation.
type fatTable struct {
	raw []byte
	// limit is one past the highest usable cluster.
	limit uint32
}

func (f *fatTable) get(c uint16) uint16 {
	return binary.LittleEndian.Uint16(f.raw[2*uint32(c):])
}

func (f *fatTable) set(c uint16, v uint16) {
	binary.LittleEndian.PutUint16(f.raw[2*uint32(c):], v)
}

// valid reports whether c may be part of a chain.
func (f *fatTable) valid(c uint16) bool {
	return c >= clusterFirst && uint32(c) < f.limit
}

// next returns the cluster following c. end is true if c is the last cluster
// of its chain.
func (f *fatTable) next(c uint16) (n uint16, end bool, err error) {
	if !f.valid(c) {
		return 0, false, checkpoint.Errorf(ErrCorrupt, "cluster %d is not a data cluster", c)
	}

	v := f.get(c)
	switch {
	case isEOC(v):
		return 0, true, nil
	case v == clusterFree, v == clusterBad, !f.valid(v):
		return 0, false, checkpoint.Errorf(ErrCorrupt, "cluster %d links to %#04x", c, v)
	}
	return v, false, nil
}

// findFree returns the first free cluster.
func (f *fatTable) findFree() (uint16, bool) {
	for c := uint32(clusterFirst); c < f.limit; c++ {
		if f.get(uint16(c)) == clusterFree {
			return uint16(c), true
		}
	}
	return 0, false
}

// countFree returns the number of free clusters.
func (f *fatTable) countFree() uint32 {
	var n uint32
	for c := uint32(clusterFirst); c < f.limit; c++ {
		if f.get(uint16(c)) == clusterFree {
			n++
		}
	}
	return n
}
