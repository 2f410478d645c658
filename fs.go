package fat16

import (
	"errors"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/afero"
)

// Fs exposes a Volume as afero.Fs. Use afero.IOFS to get an io/fs.FS.
//
// Errors are returned as *os.PathError carrying the matching os or syscall
// error, so os.IsNotExist and friends work.
type Fs struct {
	vol *Volume
}

var _ afero.Fs = (*Fs)(nil)

// NewFs creates an afero.Fs for a volume which has been set up.
func NewFs(v *Volume) *Fs {
	return &Fs{vol: v}
}

// clean converts any name into an absolute slash separated path.
func clean(name string) string {
	return path.Clean("/" + name)
}

func pathError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	glog.V(2).Infof("fat16: %s %q: %v", op, name, err)

	var mapped error
	switch {
	case errors.Is(err, ErrNotFound):
		mapped = os.ErrNotExist
	case errors.Is(err, ErrExist):
		mapped = os.ErrExist
	case errors.Is(err, ErrNotDirectory):
		mapped = syscall.ENOTDIR
	case errors.Is(err, ErrIsDirectory):
		mapped = syscall.EISDIR
	case errors.Is(err, ErrNotEmpty):
		mapped = syscall.ENOTEMPTY
	case errors.Is(err, ErrNoSpace):
		mapped = syscall.ENOSPC
	case errors.Is(err, ErrInvalidName):
		mapped = syscall.EINVAL
	default:
		mapped = err
	}
	return &os.PathError{Op: op, Path: name, Err: mapped}
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return pathError("mkdir", name, fs.vol.CreateDirectory(clean(name)))
}

func (fs *Fs) MkdirAll(p string, perm os.FileMode) error {
	current := ""
	for _, segment := range splitPath(clean(p)) {
		current += "/" + segment

		e, err := fs.vol.Stat(current)
		if err == nil {
			if !e.IsDir() {
				return pathError("mkdir", p, ErrNotDirectory)
			}
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return pathError("mkdir", p, err)
		}

		if err := fs.vol.CreateDirectory(current); err != nil {
			return pathError("mkdir", p, err)
		}
	}
	return nil
}

func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens a file or directory. Directories can only be opened read
// only. The permission bits are ignored.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	p := clean(name)

	e, err := fs.vol.Stat(p)
	switch {
	case errors.Is(err, ErrNotFound) && flag&os.O_CREATE != 0:
		if err := fs.vol.CreateFile(p); err != nil {
			return nil, pathError("open", name, err)
		}
		if e, err = fs.vol.Stat(p); err != nil {
			return nil, pathError("open", name, err)
		}
	case err != nil:
		return nil, pathError("open", name, err)
	case flag&(os.O_CREATE|os.O_EXCL) == os.O_CREATE|os.O_EXCL:
		return nil, pathError("open", name, ErrExist)
	}

	f := &File{
		vol:   fs.vol,
		path:  p,
		entry: e,
		flag:  flag,
	}
	if !f.writable() {
		return f, nil
	}

	if e.IsDir() {
		return nil, pathError("open", name, ErrIsDirectory)
	}
	if e.Flags&AttrReadOnly != 0 {
		return nil, pathError("open", name, os.ErrPermission)
	}

	if flag&os.O_TRUNC != 0 {
		f.data = []byte{}
		f.dirty = e.Size != 0
		return f, nil
	}

	f.data = make([]byte, e.Size)
	if e.Size > 0 {
		if _, err := fs.vol.ReadFileAt(p, f.data, 0); err != nil {
			return nil, pathError("open", name, err)
		}
	}
	return f, nil
}

func (fs *Fs) Remove(name string) error {
	return pathError("remove", name, fs.vol.Remove(clean(name)))
}

// RemoveAll removes a path and all its children. A missing path is no error.
func (fs *Fs) RemoveAll(p string) error {
	name := clean(p)

	e, err := fs.vol.Stat(name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return pathError("removeall", p, err)
	}

	if e.IsDir() {
		entries, err := fs.vol.ReadDir(name)
		if err != nil {
			return pathError("removeall", p, err)
		}
		for _, child := range entries {
			if err := fs.RemoveAll(path.Join(name, child.FileName())); err != nil {
				return err
			}
		}
	}

	if name == "/" {
		return nil
	}
	return pathError("removeall", p, fs.vol.Remove(name))
}

func (fs *Fs) Rename(oldname, newname string) error {
	return pathError("rename", oldname, fs.vol.Rename(clean(oldname), clean(newname)))
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	e, err := fs.vol.Stat(clean(name))
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return e.FileInfo(), nil
}

func (fs *Fs) Name() string {
	return "fat16"
}

// Chmod maps the write permission of the owner onto the read only flag.
func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	p := clean(name)
	e, err := fs.vol.Stat(p)
	if err != nil {
		return pathError("chmod", name, err)
	}

	attr := e.Flags &^ AttrReadOnly
	if mode&0o200 == 0 {
		attr |= AttrReadOnly
	}
	return pathError("chmod", name, fs.vol.SetAttributes(p, attr))
}

// Chown does nothing, as FAT has no owners.
func (fs *Fs) Chown(name string, uid, gid int) error {
	_, err := fs.vol.Stat(clean(name))
	return pathError("chown", name, err)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return pathError("chtimes", name, fs.vol.SetModTime(clean(name), atime, mtime))
}
