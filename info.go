package fat16

import (
	"strings"
)

// Info contains all information about the whole filesystem.
type Info struct {
	OEMName     string
	VolumeLabel string
	VolumeID    uint32

	TotalSectors      uint32
	SectorsPerCluster uint32
	BytesPerCluster   uint32
	FATCount          uint32
	SectorsPerFAT     uint32
	RootEntries       uint32
	FirstDataSector   uint32

	TotalClusters uint32
	FreeClusters  uint32
}

// Info reads the boot sector and counts the free clusters.
func (v *Volume) Info() (Info, error) {
	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return Info{}, err
	}

	return Info{
		OEMName:     strings.TrimRight(string(op.boot.OEMName[:]), " \x00"),
		VolumeLabel: strings.TrimRight(string(op.boot.VolumeLabel[:]), " \x00"),
		VolumeID:    op.boot.VolumeID,

		TotalSectors:      op.boot.Sectors(),
		SectorsPerCluster: op.geo.sectorsPerCluster,
		BytesPerCluster:   op.geo.bytesPerCluster,
		FATCount:          op.geo.fatCount,
		SectorsPerFAT:     op.geo.fatSectors,
		RootEntries:       op.geo.rootEntries,
		FirstDataSector:   op.geo.dataStart,

		TotalClusters: op.geo.clusterLimit - clusterFirst,
		FreeClusters:  op.fat.countFree(),
	}, nil
}
