package blockdevice

import (
	"errors"
	"io"
	"os"

	"github.com/aligator/fat16/checkpoint"
	"github.com/golang/glog"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// ErrImageSize indicates that an image file is not a whole number of sectors.
var ErrImageSize = errors.New("image size is not a multiple of the sector size")

// Image is a device backed by an image file.
type Image struct {
	f       afero.File
	sectors uint32
}

// OpenImage opens an existing image file for reading and writing.
// The capacity of the device is the size of the file.
func OpenImage(fs afero.Fs, path string) (*Image, error) {
	f, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, checkpoint.From(err)
	}
	if info.Size()%SectorSize != 0 || info.Size()/SectorSize > int64(^uint32(0)) {
		f.Close()
		return nil, checkpoint.Errorf(ErrImageSize, "%s has %d bytes", path, info.Size())
	}

	glog.V(2).Infof("opened image %s with %d sectors", path, info.Size()/SectorSize)
	return &Image{f: f, sectors: uint32(info.Size() / SectorSize)}, nil
}

// CreateImage creates (or truncates) an image file of the given number of
// zeroed sectors.
func CreateImage(fs afero.Fs, path string, sectors uint32) (*Image, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	if err := f.Truncate(int64(sectors) * SectorSize); err != nil {
		f.Close()
		return nil, checkpoint.From(err)
	}

	glog.V(2).Infof("created image %s with %d sectors", path, sectors)
	return &Image{f: f, sectors: sectors}, nil
}

// Sectors implements Device.Sectors for Image.
func (i *Image) Sectors() uint32 {
	return i.sectors
}

// ReadSectors implements Device.ReadSectors for Image.
func (i *Image) ReadSectors(lba uint32, count uint8, p []byte) error {
	if err := check(i.sectors, lba, count, p); err != nil {
		return err
	}

	n, err := i.f.ReadAt(p, int64(lba)*SectorSize)
	// Sparse files may end early, the rest reads as zeros.
	if err == io.EOF {
		for j := n; j < len(p); j++ {
			p[j] = 0
		}
		err = nil
	}
	return checkpoint.From(err)
}

// WriteSectors implements Device.WriteSectors for Image.
func (i *Image) WriteSectors(lba uint32, count uint8, p []byte) error {
	if err := check(i.sectors, lba, count, p); err != nil {
		return err
	}

	_, err := i.f.WriteAt(p, int64(lba)*SectorSize)
	return checkpoint.From(err)
}

// Sync commits the image to stable storage.
func (i *Image) Sync() error {
	return checkpoint.From(i.f.Sync())
}

// Close syncs and closes the image file.
func (i *Image) Close() error {
	return checkpoint.From(multierr.Append(i.f.Sync(), i.f.Close()))
}
