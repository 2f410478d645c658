// File model contains the structs which match the direct structures of the FAT16 filesystem.
// They are read and written field by field in little endian byte order.

package fat16

import (
	"bytes"
	"encoding/binary"

	"github.com/aligator/fat16/checkpoint"
)

const (
	// BootSectorSize is the size of the on-disk boot sector.
	BootSectorSize = 512
	// DirEntrySize is the size of one on-disk directory entry.
	DirEntrySize = 32

	// BootSignature is the value of BootSector.BootablePartitionSignature
	// of a formatted volume.
	BootSignature = 0xAA55
)

// Attributes of a DirEntry.
const (
	AttrReadOnly    = 0x01
	AttrHidden      = 0x02
	AttrSystem      = 0x04
	AttrVolumeLabel = 0x08
	AttrDirectory   = 0x10
	AttrArchive     = 0x20
)

// BootSector is the BIOS parameter block and extended boot record found in
// the first sector of a FAT16 volume.
type BootSector struct {
	// BIOS parameter block
	Jump                [3]byte
	OEMName             [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectors     uint16
	FATCount            uint8
	RootDirCount        uint16
	TotalSectors        uint16
	MediaDescriptorType uint8
	SectorsPerFAT       uint16
	SectorsPerTrack     uint16
	HeadCount           uint16
	HiddenSectors       uint32
	LargeSectorCount    uint32

	// Extended boot record
	DriveNumber                uint8
	NTFlags                    uint8
	Signature                  uint8
	VolumeID                   uint32
	VolumeLabel                [11]byte
	SystemIdentifier           [8]byte
	BootCode                   [448]byte
	BootablePartitionSignature uint16
}

// UnmarshalBinary decodes a boot sector from the first BootSectorSize bytes of data.
func (b *BootSector) UnmarshalBinary(data []byte) error {
	if len(data) < BootSectorSize {
		return checkpoint.Errorf(ErrInvalidBootSector, "need %d bytes, got %d", BootSectorSize, len(data))
	}
	return checkpoint.From(binary.Read(bytes.NewReader(data[:BootSectorSize]), binary.LittleEndian, b))
}

// MarshalBinary encodes the boot sector into BootSectorSize bytes.
func (b *BootSector) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, BootSectorSize))
	if err := binary.Write(buf, binary.LittleEndian, b); err != nil {
		return nil, checkpoint.From(err)
	}
	return buf.Bytes(), nil
}

// Sectors returns the total number of sectors of the volume.
func (b *BootSector) Sectors() uint32 {
	if b.TotalSectors != 0 {
		return uint32(b.TotalSectors)
	}
	return b.LargeSectorCount
}

// DirEntry is a short (8.3) directory entry.
type DirEntry struct {
	Name            [11]byte
	Flags           uint8
	Reserved        uint8
	CreateTimeTenth uint8
	CreateTime      uint16
	CreateDate      uint16
	AccessDate      uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	Size            uint32
}

// decodeEntry reads the directory entry stored at the beginning of data.
func decodeEntry(data []byte) DirEntry {
	_ = data[DirEntrySize-1]
	var e DirEntry
	copy(e.Name[:], data[0:11])
	e.Flags = data[11]
	e.Reserved = data[12]
	e.CreateTimeTenth = data[13]
	e.CreateTime = binary.LittleEndian.Uint16(data[14:])
	e.CreateDate = binary.LittleEndian.Uint16(data[16:])
	e.AccessDate = binary.LittleEndian.Uint16(data[18:])
	e.FirstClusterHI = binary.LittleEndian.Uint16(data[20:])
	e.WriteTime = binary.LittleEndian.Uint16(data[22:])
	e.WriteDate = binary.LittleEndian.Uint16(data[24:])
	e.FirstClusterLO = binary.LittleEndian.Uint16(data[26:])
	e.Size = binary.LittleEndian.Uint32(data[28:])
	return e
}

// encode writes the directory entry to the beginning of data.
func (e *DirEntry) encode(data []byte) {
	_ = data[DirEntrySize-1]
	copy(data[0:11], e.Name[:])
	data[11] = e.Flags
	data[12] = e.Reserved
	data[13] = e.CreateTimeTenth
	binary.LittleEndian.PutUint16(data[14:], e.CreateTime)
	binary.LittleEndian.PutUint16(data[16:], e.CreateDate)
	binary.LittleEndian.PutUint16(data[18:], e.AccessDate)
	binary.LittleEndian.PutUint16(data[20:], e.FirstClusterHI)
	binary.LittleEndian.PutUint16(data[22:], e.WriteTime)
	binary.LittleEndian.PutUint16(data[24:], e.WriteDate)
	binary.LittleEndian.PutUint16(data[26:], e.FirstClusterLO)
	binary.LittleEndian.PutUint32(data[28:], e.Size)
}

// Cluster returns the first cluster of the entry.
func (e *DirEntry) Cluster() uint16 {
	return e.FirstClusterLO
}

// IsDir reports whether the entry describes a directory.
func (e *DirEntry) IsDir() bool {
	return e.Flags&AttrDirectory != 0
}

// IsFile reports whether the entry describes a regular file.
func (e *DirEntry) IsFile() bool {
	return e.Flags&(AttrDirectory|AttrVolumeLabel) == 0
}

// IsEnd reports whether the entry marks the end of the directory.
func (e *DirEntry) IsEnd() bool {
	return e.Name[0] == nameEnd
}

// IsDeleted reports whether the entry has been deleted.
func (e *DirEntry) IsDeleted() bool {
	return e.Name[0] == nameDeleted
}

// IsAvailable reports whether the slot of the entry can be used for a new entry.
func (e *DirEntry) IsAvailable() bool {
	return e.IsEnd() || e.IsDeleted()
}

// FileName returns the decoded name of the entry.
func (e *DirEntry) FileName() string {
	return DecodeName(e.Name)
}
