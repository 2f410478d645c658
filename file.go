package fat16

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/afero"

	"github.com/aligator/fat16/checkpoint"
)

// These errors may occur while processing a file.
var (
	ErrReadFile  = errors.New("could not read file completely")
	ErrWriteFile = errors.New("could not write file")
	ErrSeekFile  = errors.New("could not seek inside of the file")
	ErrReadDir   = errors.New("could not read the directory")
)

// fileVolume provides all methods needed from a Volume for File.
// It mainly exists to be able to mock the Volume in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock_test.go -package fat16
type fileVolume interface {
	ReadFileAt(path string, p []byte, off int64) (int, error)
	WriteFile(path string, p []byte) error
	ReadDir(path string) ([]DirEntry, error)
}

// File is an open file or directory of a Volume.
//
// Files opened for writing keep their whole content in memory. It is
// written to the volume by Sync and Close.
type File struct {
	vol   fileVolume
	path  string
	entry DirEntry
	flag  int

	offset int64
	data   []byte
	dirty  bool
	closed bool

	dirEntries []DirEntry
	dirOffset  int
}

func (f *File) writable() bool {
	return f.flag&(os.O_WRONLY|os.O_RDWR) != 0
}

func (f *File) size() int64 {
	if f.writable() {
		return int64(len(f.data))
	}
	return int64(f.entry.Size)
}

func (f *File) Close() error {
	if f.closed {
		return afero.ErrFileClosed
	}

	err := f.Sync()
	f.closed = true
	f.data = nil
	f.dirEntries = nil
	return err
}

func (f *File) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err = f.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

// ReadAt reads len(p) bytes starting at off. If less bytes are available, it
// returns io.EOF.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if f.closed {
		return 0, afero.ErrFileClosed
	}
	if f.entry.IsDir() {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrReadFile)
	}
	if off < 0 {
		return 0, checkpoint.Wrap(syscall.EINVAL, ErrReadFile)
	}
	if len(p) == 0 {
		return 0, nil
	}

	// Reading over the end makes no sense.
	if f.size() <= off {
		return 0, io.EOF
	}

	if f.writable() {
		n = copy(p, f.data[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil
	}

	n, err = f.vol.ReadFileAt(f.path, p, off)
	if err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	return n, nil
}

// Seek jumps to a specific offset in the file. This affects all Read and
// Write operations except ReadAt and WriteAt.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, afero.ErrFileClosed
	}

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > f.size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	if f.flag&os.O_APPEND != 0 {
		f.offset = int64(len(f.data))
	}

	n, err = f.WriteAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

// WriteAt writes p at off. A gap between the end of the file and off is
// filled with zeros.
func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	if f.closed {
		return 0, afero.ErrFileClosed
	}
	if !f.writable() {
		return 0, checkpoint.Wrap(os.ErrPermission, ErrWriteFile)
	}
	if off < 0 {
		return 0, checkpoint.Wrap(syscall.EINVAL, ErrWriteFile)
	}

	end := off + int64(len(p))
	if end > int64(^uint32(0)) {
		return 0, checkpoint.Wrap(syscall.EFBIG, ErrWriteFile)
	}
	if end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	copy(f.data[off:], p)
	f.dirty = true
	return len(p), nil
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}

// Truncate changes the size of the file. The offset is not changed.
func (f *File) Truncate(size int64) error {
	if f.closed {
		return afero.ErrFileClosed
	}
	if !f.writable() {
		return checkpoint.Wrap(os.ErrPermission, ErrWriteFile)
	}
	if size < 0 || size > int64(^uint32(0)) {
		return checkpoint.Wrap(syscall.EINVAL, ErrWriteFile)
	}

	if size <= int64(len(f.data)) {
		f.data = f.data[:size]
	} else {
		f.data = append(f.data, make([]byte, size-int64(len(f.data)))...)
	}
	f.dirty = true
	return nil
}

// Sync writes the content of the file to the volume if it has been changed.
func (f *File) Sync() error {
	if f.closed {
		return afero.ErrFileClosed
	}
	if !f.dirty {
		return nil
	}

	if err := f.vol.WriteFile(f.path, f.data); err != nil {
		return checkpoint.Wrap(err, ErrWriteFile)
	}
	f.entry.Size = uint32(len(f.data))
	f.dirty = false
	return nil
}

func (f *File) Name() string {
	return f.path
}

// Readdir reads the contents of a directory. The entries are read once and
// then returned in chunks of count entries. If count <= 0, all remaining
// entries are returned.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if f.closed {
		return nil, afero.ErrFileClosed
	}
	if !f.entry.IsDir() {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	if f.dirEntries == nil {
		entries, err := f.vol.ReadDir(f.path)
		if err != nil {
			return nil, checkpoint.Wrap(err, ErrReadDir)
		}
		f.dirEntries = append([]DirEntry{}, entries...)
	}

	remaining := f.dirEntries[f.dirOffset:]
	if count > 0 {
		if len(remaining) == 0 {
			return nil, io.EOF
		}
		if count < len(remaining) {
			remaining = remaining[:count]
		}
	}
	f.dirOffset += len(remaining)

	result := make([]os.FileInfo, len(remaining))
	for i := range remaining {
		result[i] = remaining[i].FileInfo()
	}
	return result, nil
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, afero.ErrFileClosed
	}

	e := f.entry
	if f.writable() {
		e.Size = uint32(len(f.data))
	}
	return e.FileInfo(), nil
}
