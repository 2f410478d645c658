package fat16

import (
	"github.com/golang/glog"

	"github.com/aligator/fat16/blockdevice"
	"github.com/aligator/fat16/checkpoint"
)

const (
	// maxClusters is the highest cluster count of a FAT16 volume.
	maxClusters = 65524
	// minClusters is the lowest cluster count which is still read as FAT16.
	minClusters = 4085
)

// FormatOptions configure Format. Zero values select the defaults.
type FormatOptions struct {
	OEMName     string
	VolumeLabel string
	VolumeID    uint32

	// Sectors limits the volume size. Defaults to the device size.
	Sectors uint32
	// SectorsPerCluster must be a power of two. By default the smallest
	// value which keeps the cluster count in the FAT16 range is used.
	SectorsPerCluster uint8
	FATCount          uint8
	RootEntries       uint16
	Media             uint8
}

func (o *FormatOptions) setDefaults(deviceSectors uint32) {
	if o.OEMName == "" {
		o.OEMName = "FAT16GO"
	}
	if o.VolumeLabel == "" {
		o.VolumeLabel = "NO NAME"
	}
	if o.Sectors == 0 || o.Sectors > deviceSectors {
		o.Sectors = deviceSectors
	}
	if o.FATCount == 0 {
		o.FATCount = 2
	}
	if o.RootEntries == 0 {
		o.RootEntries = 512
	}
	if o.Media == 0 {
		o.Media = 0xF8
	}
	if o.SectorsPerCluster == 0 {
		o.SectorsPerCluster = 1
		for o.SectorsPerCluster < 128 && o.Sectors/uint32(o.SectorsPerCluster) > maxClusters {
			o.SectorsPerCluster <<= 1
		}
	}
}

func padded(dst []byte, s string) {
	for i := range dst {
		dst[i] = ' '
	}
	copy(dst, s)
}

// NewBootSector computes the boot sector of a FAT16 volume with the given
// options on a device of deviceSectors sectors.
func NewBootSector(opts FormatOptions, deviceSectors uint32) (BootSector, error) {
	opts.setDefaults(deviceSectors)

	rootSectors := (uint32(opts.RootEntries)*DirEntrySize + blockdevice.SectorSize - 1) / blockdevice.SectorSize
	opts.RootEntries = uint16(rootSectors * blockdevice.SectorSize / DirEntrySize)

	const reserved = 1
	spc := uint32(opts.SectorsPerCluster)
	if spc == 0 || spc&(spc-1) != 0 {
		return BootSector{}, checkpoint.Errorf(ErrInvalidBootSector, "sectors per cluster %d is no power of two", spc)
	}
	if opts.Sectors <= reserved+rootSectors {
		return BootSector{}, checkpoint.Errorf(ErrInvalidBootSector, "%d sectors are too small for a volume", opts.Sectors)
	}

	// The FAT is sized for all sectors behind the root region, which
	// slightly overestimates the cluster count.
	clusters := (opts.Sectors - reserved - rootSectors) / spc
	fatSectors := ((clusters+clusterFirst)*2 + blockdevice.SectorSize - 1) / blockdevice.SectorSize
	meta := reserved + uint32(opts.FATCount)*fatSectors + rootSectors
	if opts.Sectors <= meta+spc {
		return BootSector{}, checkpoint.Errorf(ErrInvalidBootSector, "%d sectors leave no data region", opts.Sectors)
	}
	clusters = (opts.Sectors - meta) / spc
	if clusters > maxClusters {
		return BootSector{}, checkpoint.Errorf(ErrInvalidBootSector, "%d clusters exceed FAT16, use larger clusters", clusters)
	}
	if clusters < minClusters {
		glog.Warningf("fat16: %d clusters are below the FAT16 minimum, other systems may read the volume as FAT12", clusters)
	}

	bs := BootSector{
		Jump:                [3]byte{0xEB, 0x3C, 0x90},
		BytesPerSector:      blockdevice.SectorSize,
		SectorsPerCluster:   opts.SectorsPerCluster,
		ReservedSectors:     reserved,
		FATCount:            opts.FATCount,
		RootDirCount:        opts.RootEntries,
		MediaDescriptorType: opts.Media,
		SectorsPerFAT:       uint16(fatSectors),
		SectorsPerTrack:     32,
		HeadCount:           64,
		DriveNumber:         0x80,
		Signature:           0x29,
		VolumeID:            opts.VolumeID,

		BootablePartitionSignature: BootSignature,
	}
	if opts.Sectors < 1<<16 {
		bs.TotalSectors = uint16(opts.Sectors)
	} else {
		bs.LargeSectorCount = opts.Sectors
	}
	padded(bs.OEMName[:], opts.OEMName)
	padded(bs.VolumeLabel[:], opts.VolumeLabel)
	padded(bs.SystemIdentifier[:], "FAT16")
	return bs, nil
}

// Format writes a new boot sector to dev and clears the FATs and the root
// directory. Afterwards the volume has to be prepared by Volume.Setup.
func Format(dev blockdevice.Device, opts FormatOptions) (BootSector, error) {
	bs, err := NewBootSector(opts, dev.Sectors())
	if err != nil {
		return BootSector{}, err
	}
	geo, err := newGeometry(&bs, dev.Sectors())
	if err != nil {
		return BootSector{}, err
	}

	sector, err := bs.MarshalBinary()
	if err != nil {
		return BootSector{}, err
	}
	if err := blockdevice.WriteAll(dev, 0, 1, sector); err != nil {
		return BootSector{}, checkpoint.Wrap(err, ErrDevice)
	}

	// FATs and root directory are contiguous.
	zero := make([]byte, blockdevice.MaxSectorsPerCall*blockdevice.SectorSize)
	for lba := geo.fatStart; lba < geo.dataStart; {
		count := geo.dataStart - lba
		if count > blockdevice.MaxSectorsPerCall {
			count = blockdevice.MaxSectorsPerCall
		}
		if err := blockdevice.WriteAll(dev, lba, count, zero[:count*blockdevice.SectorSize]); err != nil {
			return BootSector{}, checkpoint.Wrap(err, ErrDevice)
		}
		lba += count
	}

	glog.V(1).Infof("fat16: formatted %d sectors, %d sectors per cluster", bs.Sectors(), bs.SectorsPerCluster)
	return bs, nil
}
