package fat16

import (
	"github.com/aligator/fat16/blockdevice"
	"github.com/aligator/fat16/checkpoint"
)

// geometry contains all offsets derived from a boot sector. It is computed
// again for every operation, since the boot sector may just have been written.
type geometry struct {
	sectorsPerCluster uint32
	bytesPerCluster   uint32
	entriesPerCluster uint32

	fatStart   uint32
	fatSectors uint32
	fatCount   uint32

	rootStart   uint32
	rootSectors uint32
	rootEntries uint32

	dataStart uint32
	// clusterLimit is one past the highest usable cluster.
	clusterLimit uint32
}

func validMedia(media uint8) bool {
	return media == 0xF0 || media >= 0xF8
}

// newGeometry validates bs and derives the volume layout from it.
// deviceSectors is the capacity of the device the volume is stored on.
func newGeometry(bs *BootSector, deviceSectors uint32) (geometry, error) {
	invalid := func(format string, args ...interface{}) (geometry, error) {
		return geometry{}, checkpoint.Errorf(ErrInvalidBootSector, format, args...)
	}

	if !(bs.Jump[0] == 0xEB && bs.Jump[2] == 0x90) && bs.Jump[0] != 0xE9 {
		return invalid("no valid jump instruction at the beginning")
	}
	if bs.BytesPerSector != blockdevice.SectorSize {
		return invalid("unsupported sector size %d", bs.BytesPerSector)
	}
	spc := uint32(bs.SectorsPerCluster)
	if spc == 0 || spc&(spc-1) != 0 || spc*blockdevice.SectorSize > 64*1024 {
		return invalid("invalid sectors per cluster %d", spc)
	}
	if bs.ReservedSectors == 0 {
		return invalid("reserved sector count is 0")
	}
	if bs.FATCount == 0 {
		return invalid("no FAT")
	}
	if bs.SectorsPerFAT == 0 {
		return invalid("FAT size is 0")
	}
	if bs.RootDirCount == 0 || uint32(bs.RootDirCount)*DirEntrySize%blockdevice.SectorSize != 0 {
		return invalid("root directory capacity %d does not fill whole sectors", bs.RootDirCount)
	}
	if !validMedia(bs.MediaDescriptorType) {
		return invalid("invalid media descriptor %#x", bs.MediaDescriptorType)
	}

	g := geometry{
		sectorsPerCluster: spc,
		bytesPerCluster:   spc * blockdevice.SectorSize,
		fatStart:          uint32(bs.ReservedSectors),
		fatSectors:        uint32(bs.SectorsPerFAT),
		fatCount:          uint32(bs.FATCount),
		rootEntries:       uint32(bs.RootDirCount),
	}
	g.entriesPerCluster = g.bytesPerCluster / DirEntrySize
	g.rootStart = g.fatStart + g.fatCount*g.fatSectors
	g.rootSectors = g.rootEntries * DirEntrySize / blockdevice.SectorSize
	g.dataStart = g.rootStart + g.rootSectors

	total := bs.Sectors()
	if total > deviceSectors {
		return invalid("volume has %d sectors, device only %d", total, deviceSectors)
	}
	if total <= g.dataStart {
		return invalid("no data region")
	}

	g.clusterLimit = (total-g.dataStart)/spc + clusterFirst
	if fatEntries := g.fatSectors * blockdevice.SectorSize / 2; g.clusterLimit > fatEntries {
		g.clusterLimit = fatEntries
	}
	if g.clusterLimit > clusterMax+1 {
		g.clusterLimit = clusterMax + 1
	}
	return g, nil
}

// clusterLBA returns the first sector of a data cluster.
func (g geometry) clusterLBA(c uint16) uint32 {
	return g.dataStart + (uint32(c)-clusterFirst)*g.sectorsPerCluster
}

// clustersFor returns the number of clusters needed to hold n bytes.
func (g geometry) clustersFor(n uint32) uint32 {
	return (n + g.bytesPerCluster - 1) / g.bytesPerCluster
}
