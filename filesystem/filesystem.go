// Package filesystem maps generic path operations onto a storage backend.
//
// The only backend is FAT16, served by a fat16.Volume.
package filesystem

import (
	"errors"
	"path"

	"github.com/golang/glog"

	"github.com/aligator/fat16"
	"github.com/aligator/fat16/checkpoint"
)

// Backend selects the filesystem implementation behind a Filesystem.
type Backend uint8

const (
	FAT16 Backend = iota
)

func (b Backend) String() string {
	switch b {
	case FAT16:
		return "fat16"
	}
	return "unknown"
}

// ErrNotReady is returned by every operation of a Filesystem which has no
// usable backend.
var ErrNotReady = errors.New("filesystem not ready")

// Filesystem dispatches path operations to its backend.
// The zero value is not ready; use New.
type Filesystem struct {
	ready   bool
	backend Backend
	vol     *fat16.Volume
}

// New creates a Filesystem for the given backend. vol serves the FAT16
// backend and must not be nil.
func New(backend Backend, vol *fat16.Volume) (*Filesystem, error) {
	switch backend {
	case FAT16:
		if vol == nil {
			return nil, checkpoint.Errorf(ErrNotReady, "no volume for backend %v", backend)
		}
		return &Filesystem{ready: true, backend: backend, vol: vol}, nil
	}
	return nil, checkpoint.Errorf(ErrNotReady, "unsupported backend %d", backend)
}

// Backend returns the backend of fs.
func (fs *Filesystem) Backend() Backend {
	return fs.backend
}

func (fs *Filesystem) volume() (*fat16.Volume, error) {
	if fs == nil || !fs.ready {
		return nil, checkpoint.New(ErrNotReady)
	}
	switch fs.backend {
	case FAT16:
		return fs.vol, nil
	}
	return nil, checkpoint.Errorf(ErrNotReady, "unsupported backend %d", fs.backend)
}

func logFailure(op, p string, err error) error {
	if err != nil {
		glog.V(1).Infof("filesystem: %s %q: %v", op, p, err)
	}
	return err
}

// Setup prepares the backend for use. It reports whether the backend had to
// be initialized.
func (fs *Filesystem) Setup() (bool, error) {
	vol, err := fs.volume()
	if err != nil {
		return false, err
	}
	initialized, err := vol.Setup()
	return initialized, logFailure("setup", "/", err)
}

func (fs *Filesystem) CreateFile(p string) error {
	vol, err := fs.volume()
	if err != nil {
		return err
	}
	return logFailure("create file", p, vol.CreateFile(p))
}

// CreateDirectory creates a single directory. Parents are not created.
func (fs *Filesystem) CreateDirectory(p string) error {
	vol, err := fs.volume()
	if err != nil {
		return err
	}
	return logFailure("create directory", p, vol.CreateDirectory(p))
}

// ReadFile reads up to len(buf) bytes from the beginning of the file and
// returns the number of bytes read.
func (fs *Filesystem) ReadFile(p string, buf []byte) (int, error) {
	vol, err := fs.volume()
	if err != nil {
		return 0, err
	}
	n, err := vol.ReadFile(p, buf)
	return n, logFailure("read file", p, err)
}

// WriteFile replaces the content of an existing file.
func (fs *Filesystem) WriteFile(p string, data []byte) error {
	vol, err := fs.volume()
	if err != nil {
		return err
	}
	return logFailure("write file", p, vol.WriteFile(p, data))
}

func (fs *Filesystem) PathExists(p string) bool {
	vol, err := fs.volume()
	if err != nil {
		return false
	}
	return vol.PathExists(p)
}

func (fs *Filesystem) IsFile(p string) bool {
	vol, err := fs.volume()
	if err != nil {
		return false
	}
	return vol.IsFile(p)
}

func (fs *Filesystem) FileSize(p string) (uint32, error) {
	vol, err := fs.volume()
	if err != nil {
		return 0, err
	}
	size, err := vol.FileSize(p)
	return size, logFailure("file size", p, err)
}

// JoinPaths joins two paths with a single separator and cleans the result.
// The result is absolute.
func JoinPaths(a, b string) string {
	return path.Join("/", a, b)
}
