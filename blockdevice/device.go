// Package blockdevice contains the sector addressed storage the filesystem is
// built on, together with an in-memory and an image file backed
// implementation.
package blockdevice

import (
	"errors"

	"github.com/aligator/fat16/checkpoint"
)

// SectorSize is the size of a single sector in bytes.
const SectorSize = 512

// MaxSectorsPerCall is the largest count accepted by a single read or write.
const MaxSectorsPerCall = 255

var (
	// ErrBufferSize indicates that a buffer is not exactly count sectors long.
	ErrBufferSize = errors.New("buffer size does not match sector count")

	// ErrOutOfBounds indicates that the requested range is not on the device.
	ErrOutOfBounds = errors.New("sector range is out of bounds")
)

// Device is a disk which is read and written in whole sectors.
type Device interface {
	// ReadSectors reads count sectors starting at lba into p.
	// len(p) must be count * SectorSize.
	ReadSectors(lba uint32, count uint8, p []byte) error
	// WriteSectors writes count sectors starting at lba from p.
	// len(p) must be count * SectorSize.
	WriteSectors(lba uint32, count uint8, p []byte) error
	// Sectors returns the capacity of the device in sectors.
	Sectors() uint32
}

// check validates the arguments of a sector read or write against a device
// of the given capacity.
func check(capacity uint32, lba uint32, count uint8, p []byte) error {
	if len(p) != int(count)*SectorSize {
		return checkpoint.Errorf(ErrBufferSize, "len(p) = %d, count = %d", len(p), count)
	}
	if uint64(lba)+uint64(count) > uint64(capacity) {
		return checkpoint.Errorf(ErrOutOfBounds, "[%d, %d) of %d sectors", lba, uint64(lba)+uint64(count), capacity)
	}
	return nil
}

// ReadAll reads count sectors starting at lba, splitting the request into
// calls of at most MaxSectorsPerCall sectors.
func ReadAll(d Device, lba uint32, count uint32, p []byte) error {
	return transfer(d.ReadSectors, lba, count, p)
}

// WriteAll writes count sectors starting at lba, splitting the request into
// calls of at most MaxSectorsPerCall sectors.
func WriteAll(d Device, lba uint32, count uint32, p []byte) error {
	return transfer(d.WriteSectors, lba, count, p)
}

func transfer(fn func(uint32, uint8, []byte) error, lba uint32, count uint32, p []byte) error {
	if uint64(len(p)) != uint64(count)*SectorSize {
		return checkpoint.Errorf(ErrBufferSize, "len(p) = %d, count = %d", len(p), count)
	}
	for count > 0 {
		n := count
		if n > MaxSectorsPerCall {
			n = MaxSectorsPerCall
		}
		if err := fn(lba, uint8(n), p[:n*SectorSize]); err != nil {
			return err
		}
		lba += n
		count -= n
		p = p[n*SectorSize:]
	}
	return nil
}
