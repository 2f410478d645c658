package blockdevice

// Memory implements Device using a []byte.
type Memory []byte

// NewMemory returns a zeroed in-memory device with the given capacity.
func NewMemory(sectors uint32) Memory {
	return make(Memory, int(sectors)*SectorSize)
}

// Sectors implements Device.Sectors for Memory.
func (m Memory) Sectors() uint32 {
	return uint32(len(m) / SectorSize)
}

// ReadSectors implements Device.ReadSectors for Memory.
func (m Memory) ReadSectors(lba uint32, count uint8, p []byte) error {
	if err := check(m.Sectors(), lba, count, p); err != nil {
		return err
	}
	copy(p, m[int(lba)*SectorSize:])
	return nil
}

// WriteSectors implements Device.WriteSectors for Memory.
func (m Memory) WriteSectors(lba uint32, count uint8, p []byte) error {
	if err := check(m.Sectors(), lba, count, p); err != nil {
		return err
	}
	copy(m[int(lba)*SectorSize:], p)
	return nil
}
