package fat16

import (
	"bytes"
	"io"
	"math"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/aligator/fat16/blockdevice"
	"github.com/aligator/fat16/checkpoint"
	"github.com/aligator/fat16/heap"
)

// Volume implements the FAT16 filesystem on top of a block device.
//
// Nothing is cached between calls: every operation reads the boot sector,
// loads the FAT and the directories it needs into arena memory, writes back
// what it modified and releases the memory again.
// A Volume is not safe for concurrent use.
type Volume struct {
	dev   blockdevice.Device
	arena *heap.Arena
	now   func() time.Time
}

// New creates a Volume for dev. Scratch memory is taken from arena; if it is
// nil, a new arena with the default size is created.
func New(dev blockdevice.Device, arena *heap.Arena) (*Volume, error) {
	if arena == nil {
		var err error
		arena, err = heap.New(heap.DefaultOrigin, heap.DefaultCapacity)
		if err != nil {
			return nil, err
		}
	}
	registerMetrics()

	return &Volume{
		dev:   dev,
		arena: arena,
		now:   time.Now,
	}, nil
}

// Device returns the block device of the volume.
func (v *Volume) Device() blockdevice.Device {
	return v.dev
}

// operation holds the state of one top level call.
type operation struct {
	v    *Volume
	boot BootSector
	geo  geometry

	fat      fatTable
	fatDirty bool

	// scratch contains all arena allocations which are still live.
	scratch []heap.Address
	zero    []byte
	// visited contains the clusters of the directories the resolved path
	// lies in, from the root downwards.
	visited []uint16
}

// begin reads the boot sector and, if withFAT is set, the first FAT copy.
// The returned operation must be closed.
func (v *Volume) begin(withFAT bool) (*operation, error) {
	op := &operation{v: v}

	sector, addr, err := op.alloc(BootSectorSize)
	if err != nil {
		return op, err
	}
	if err := op.read(0, 1, sector); err != nil {
		return op, err
	}
	if err := op.boot.UnmarshalBinary(sector); err != nil {
		return op, err
	}
	op.release(addr)

	op.geo, err = newGeometry(&op.boot, v.dev.Sectors())
	if err != nil {
		return op, err
	}

	if withFAT {
		raw, _, err := op.alloc(op.geo.fatSectors * blockdevice.SectorSize)
		if err != nil {
			return op, err
		}
		if err := op.read(op.geo.fatStart, op.geo.fatSectors, raw); err != nil {
			return op, err
		}
		op.fat = fatTable{raw: raw, limit: op.geo.clusterLimit}
	}
	return op, nil
}

// commit writes the FAT to every FAT copy if it was modified.
func (op *operation) commit() error {
	if !op.fatDirty {
		return nil
	}
	for i := uint32(0); i < op.geo.fatCount; i++ {
		if err := op.write(op.geo.fatStart+i*op.geo.fatSectors, op.geo.fatSectors, op.fat.raw); err != nil {
			return err
		}
	}
	op.fatDirty = false
	return nil
}

// close releases all scratch memory in reverse allocation order.
func (op *operation) close() {
	for i := len(op.scratch) - 1; i >= 0; i-- {
		if err := op.v.arena.Release(op.scratch[i]); err != nil {
			glog.Warningf("fat16: releasing scratch memory: %v", err)
		}
	}
	op.scratch = nil
}

// alloc returns n zeroed bytes of arena memory, which stay allocated until
// they are released or the operation is closed.
func (op *operation) alloc(n uint32) ([]byte, heap.Address, error) {
	addr, err := op.v.arena.Allocate(n)
	if err != nil {
		return nil, heap.Nil, checkpoint.From(err)
	}
	op.scratch = append(op.scratch, addr)

	p, err := op.v.arena.Bytes(addr)
	if err != nil {
		return nil, heap.Nil, checkpoint.From(err)
	}
	return p[:n], addr, nil
}

func (op *operation) release(addr heap.Address) {
	for i := len(op.scratch) - 1; i >= 0; i-- {
		if op.scratch[i] == addr {
			op.scratch = append(op.scratch[:i], op.scratch[i+1:]...)
			if err := op.v.arena.Release(addr); err != nil {
				glog.Warningf("fat16: releasing scratch memory: %v", err)
			}
			return
		}
	}
}

func (op *operation) read(lba, count uint32, p []byte) error {
	err := blockdevice.ReadAll(op.v.dev, lba, count, p)
	return checkpoint.Wrap(err, ErrDevice)
}

func (op *operation) write(lba, count uint32, p []byte) error {
	err := blockdevice.WriteAll(op.v.dev, lba, count, p)
	return checkpoint.Wrap(err, ErrDevice)
}

func (op *operation) stamp(e *DirEntry, created bool) {
	date, clock := MarshalTimestamp(op.v.now())
	e.WriteDate, e.WriteTime = date, clock
	e.AccessDate = date
	if created {
		e.CreateDate, e.CreateTime = date, clock
	}
}

// fatSignature returns the first four bytes of an initialized FAT.
func (op *operation) fatSignature() []byte {
	return []byte{op.boot.MediaDescriptorType, 0xFF, 0xFF, 0xFF}
}

// Setup prepares a formatted volume for use. If the first FAT sector does
// not start with the FAT16 signature, the signature is written to all FAT
// copies and initialized is true. Missing "." and ".." entries of the root
// directory are created. Calling Setup on a prepared volume writes nothing.
func (v *Volume) Setup() (initialized bool, err error) {
	defer func() { observe("setup", err) }()

	op, err := v.begin(false)
	defer op.close()
	if err != nil {
		return false, err
	}

	sector, _, err := op.alloc(blockdevice.SectorSize)
	if err != nil {
		return false, err
	}
	if err := op.read(op.geo.fatStart, 1, sector); err != nil {
		return false, err
	}

	signature := op.fatSignature()
	if !bytes.Equal(sector[:len(signature)], signature) {
		initialized = true
		copy(sector, signature)
		for i := uint32(0); i < op.geo.fatCount; i++ {
			if err := op.write(op.geo.fatStart+i*op.geo.fatSectors, 1, sector); err != nil {
				return initialized, err
			}
		}
		glog.V(1).Infof("fat16: wrote FAT signature to %d copies", op.geo.fatCount)
	}

	root, err := op.loadDirectory(rootBacking)
	if err != nil {
		return initialized, err
	}

	changed := false
	for _, name := range [][nameLen]byte{dotName, dotDotName} {
		if _, ok := root.lookup(name, isDirectory); ok {
			continue
		}
		slot, err := op.prepareSlot(root, name, isDirectory)
		if err != nil {
			return initialized, err
		}
		e := DirEntry{Name: name, Flags: AttrDirectory}
		op.stamp(&e, true)
		root.setEntry(slot, &e)
		changed = true
	}
	if changed {
		if err := op.storeDirectory(root); err != nil {
			return initialized, err
		}
	}
	return initialized, nil
}

// CreateFile creates an empty file. The parent directory must exist.
func (v *Volume) CreateFile(path string) (err error) {
	defer func() { observe("create_file", err) }()
	return v.create(path, false)
}

// CreateDirectory creates an empty directory. Parent directories are not
// created.
func (v *Volume) CreateDirectory(path string) (err error) {
	defer func() { observe("create_directory", err) }()
	return v.create(path, true)
}

func (v *Volume) create(path string, dir bool) error {
	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return err
	}

	parent, leaf, err := op.traversePath(path)
	if err != nil {
		return err
	}
	if leaf == "" || leaf == "." || leaf == ".." {
		return checkpoint.Errorf(ErrExist, "%q", path)
	}
	name, err := EncodeName(leaf)
	if err != nil {
		return err
	}

	pred, flags := isFile, uint8(AttrArchive)
	if dir {
		pred, flags = isDirectory, AttrDirectory
	}
	slot, err := op.prepareSlot(parent, name, pred)
	if err != nil {
		return err
	}

	c, err := op.allocCluster()
	if err != nil {
		return err
	}

	e := DirEntry{Name: name, Flags: flags, FirstClusterLO: c}
	op.stamp(&e, true)

	if dir {
		e.Size = op.geo.bytesPerCluster
		if err := op.initDirectory(c, parent.backing); err != nil {
			return err
		}
	}

	parent.setEntry(slot, &e)
	if err := op.storeDirectory(parent); err != nil {
		return err
	}
	if err := op.commit(); err != nil {
		return err
	}

	glog.V(1).Infof("fat16: created %q in cluster %d", path, c)
	return nil
}

// initDirectory writes the "." and ".." entries into the first cluster of a
// new directory.
func (op *operation) initDirectory(c uint16, parent backing) error {
	raw, addr, err := op.alloc(op.geo.bytesPerCluster)
	if err != nil {
		return err
	}
	defer op.release(addr)

	d := &directory{backing: chainBacking(c), raw: raw, addr: addr}

	dot := DirEntry{Name: dotName, Flags: AttrDirectory, FirstClusterLO: c}
	op.stamp(&dot, true)
	d.setEntry(0, &dot)

	dotDot := DirEntry{Name: dotDotName, Flags: AttrDirectory}
	if parent.kind == chainBacked {
		dotDot.FirstClusterLO = parent.cluster
	}
	op.stamp(&dotDot, true)
	d.setEntry(1, &dotDot)

	return op.storeDirectory(d)
}

// resolve finds the entry named by path. The returned parent directory must
// be stored if the entry is modified.
func (op *operation) resolve(path string, pred func(*DirEntry) bool) (*directory, int, error) {
	parent, leaf, err := op.traversePath(path)
	if err != nil {
		return nil, 0, err
	}
	if leaf == "" {
		return nil, 0, checkpoint.Errorf(ErrIsDirectory, "%q is the root directory", path)
	}
	name, err := EncodeName(leaf)
	if err != nil {
		return nil, 0, err
	}

	idx, ok := parent.lookup(name, pred)
	if !ok {
		other, exists := parent.lookup(name, nil)
		if !exists {
			return nil, 0, checkpoint.Errorf(ErrNotFound, "%q", path)
		}
		if e := parent.entry(other); e.IsDir() {
			return nil, 0, checkpoint.Errorf(ErrIsDirectory, "%q", path)
		}
		return nil, 0, checkpoint.Errorf(ErrNotDirectory, "%q", path)
	}
	return parent, idx, nil
}

// WriteFile replaces the content of an existing file with p.
func (v *Volume) WriteFile(path string, p []byte) (err error) {
	defer func() { observe("write_file", err) }()

	if uint64(len(p)) > math.MaxUint32 {
		return checkpoint.Errorf(ErrNoSpace, "%d bytes exceed the maximum file size", len(p))
	}

	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return err
	}

	parent, idx, err := op.resolve(path, isFile)
	if err != nil {
		return err
	}
	e := parent.entry(idx)

	c := e.Cluster()
	if c == 0 {
		if c, err = op.allocCluster(); err != nil {
			return err
		}
		e.FirstClusterLO = c
	}
	if err := op.fitChainToBytes(c, uint32(len(p))); err != nil {
		return err
	}
	if err := op.writeChain(c, p); err != nil {
		return err
	}

	e.Size = uint32(len(p))
	e.Flags |= AttrArchive
	op.stamp(&e, false)
	parent.setEntry(idx, &e)

	if err := op.storeDirectory(parent); err != nil {
		return err
	}
	if err := op.commit(); err != nil {
		return err
	}

	glog.V(1).Infof("fat16: wrote %d bytes to %q", len(p), path)
	return nil
}

// ReadFile reads up to len(p) bytes from the beginning of a file. Only the
// first Size bytes of the file are read.
func (v *Volume) ReadFile(path string, p []byte) (n int, err error) {
	defer func() { observe("read_file", err) }()
	return v.readAt(path, p, 0)
}

// ReadFileAt reads len(p) bytes of a file starting at off. It follows the
// io.ReaderAt contract: if fewer bytes are available, io.EOF is returned.
func (v *Volume) ReadFileAt(path string, p []byte, off int64) (n int, err error) {
	defer func() {
		if err != io.EOF {
			observe("read_file", err)
		}
	}()

	if off < 0 {
		return 0, checkpoint.Errorf(syscall.EINVAL, "negative offset %d", off)
	}
	if off > math.MaxUint32 {
		return 0, io.EOF
	}

	n, err = v.readAt(path, p, uint32(off))
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (v *Volume) readAt(path string, p []byte, off uint32) (int, error) {
	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return 0, err
	}

	parent, idx, err := op.resolve(path, isFile)
	if err != nil {
		return 0, err
	}
	e := parent.entry(idx)

	if off >= e.Size || e.Cluster() == 0 {
		return 0, nil
	}
	if remaining := e.Size - off; uint64(len(p)) > uint64(remaining) {
		p = p[:remaining]
	}
	return op.readChainAt(e.Cluster(), p, off)
}

// Stat returns the directory entry of path. The root directory is described
// by a synthetic entry named ".".
func (v *Volume) Stat(path string) (DirEntry, error) {
	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return DirEntry{}, err
	}
	return op.stat(path)
}

func (op *operation) stat(path string) (DirEntry, error) {
	parent, leaf, err := op.traversePath(path)
	if err != nil {
		return DirEntry{}, err
	}
	if leaf == "" {
		return DirEntry{Name: dotName, Flags: AttrDirectory}, nil
	}
	name, err := EncodeName(leaf)
	if err != nil {
		return DirEntry{}, err
	}
	idx, ok := parent.lookup(name, nil)
	if !ok {
		return DirEntry{}, checkpoint.Errorf(ErrNotFound, "%q", path)
	}
	return parent.entry(idx), nil
}

// PathExists reports whether path names an existing file or directory.
func (v *Volume) PathExists(path string) bool {
	_, err := v.Stat(path)
	return err == nil
}

// IsFile reports whether path names an existing regular file.
func (v *Volume) IsFile(path string) bool {
	e, err := v.Stat(path)
	return err == nil && e.IsFile()
}

// IsDirectory reports whether path names an existing directory.
func (v *Volume) IsDirectory(path string) bool {
	e, err := v.Stat(path)
	return err == nil && e.IsDir()
}

// FileSize returns the size of a file in bytes.
func (v *Volume) FileSize(path string) (uint32, error) {
	e, err := v.Stat(path)
	if err != nil {
		return 0, err
	}
	if e.IsDir() {
		return 0, checkpoint.Errorf(ErrIsDirectory, "%q", path)
	}
	return e.Size, nil
}

// ReadDir returns the entries of a directory in on-disk order, without "."
// and "..".
func (v *Volume) ReadDir(path string) ([]DirEntry, error) {
	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return nil, err
	}

	d, err := op.openDirectory(path)
	if err != nil {
		return nil, err
	}

	var entries []DirEntry
	d.each(func(_ int, e *DirEntry) bool {
		if e.Name != dotName && e.Name != dotDotName {
			entries = append(entries, *e)
		}
		return true
	})
	return entries, nil
}

// Remove deletes a file or an empty directory and frees its clusters.
func (v *Volume) Remove(path string) (err error) {
	defer func() { observe("remove", err) }()

	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return err
	}

	parent, idx, err := op.resolve(path, nil)
	if err != nil {
		return err
	}
	e := parent.entry(idx)
	if e.Name == dotName || e.Name == dotDotName {
		return checkpoint.Errorf(ErrInvalidName, "cannot remove %q", path)
	}

	if e.IsDir() && e.Cluster() != 0 {
		d, err := op.loadDirectory(backingOf(&e))
		if err != nil {
			return err
		}
		empty := d.empty()
		op.releaseDirectory(d)
		if !empty {
			return checkpoint.Errorf(ErrNotEmpty, "%q", path)
		}
	}

	if e.Cluster() != 0 {
		if err := op.freeChain(e.Cluster()); err != nil {
			return err
		}
	}

	e.Name[0] = nameDeleted
	parent.setEntry(idx, &e)
	if err := op.shrinkDirectory(parent); err != nil {
		return err
	}
	if err := op.storeDirectory(parent); err != nil {
		return err
	}
	if err := op.commit(); err != nil {
		return err
	}

	glog.V(1).Infof("fat16: removed %q", path)
	return nil
}

// Rename moves a file or directory to newPath. newPath must not exist.
func (v *Volume) Rename(oldPath, newPath string) (err error) {
	defer func() { observe("rename", err) }()

	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return err
	}

	src, idx, err := op.resolve(oldPath, nil)
	if err != nil {
		return err
	}
	e := src.entry(idx)
	if e.Name == dotName || e.Name == dotDotName {
		return checkpoint.Errorf(ErrInvalidName, "cannot rename %q", oldPath)
	}

	op.visited = nil
	dst, leaf, err := op.traversePath(newPath)
	if err != nil {
		return err
	}
	if leaf == "" || leaf == "." || leaf == ".." {
		return checkpoint.Errorf(ErrExist, "%q", newPath)
	}
	name, err := EncodeName(leaf)
	if err != nil {
		return err
	}
	if e.IsDir() {
		for _, c := range op.visited {
			if c == e.Cluster() {
				return checkpoint.Errorf(ErrInvalidName, "cannot move %q into itself", oldPath)
			}
		}
	}

	if dst.backing == src.backing {
		op.releaseDirectory(dst)
		dst = src
	}

	if existing, ok := dst.lookup(name, nil); ok && !(dst == src && existing == idx) {
		return checkpoint.Errorf(ErrExist, "%q", newPath)
	}

	if dst == src {
		e.Name = name
		src.setEntry(idx, &e)
		if err := op.storeDirectory(src); err != nil {
			return err
		}
		return op.commit()
	}

	slot, err := op.prepareSlot(dst, name, func(*DirEntry) bool { return true })
	if err != nil {
		return err
	}
	moved := e
	moved.Name = name
	dst.setEntry(slot, &moved)

	e.Name[0] = nameDeleted
	src.setEntry(idx, &e)

	if moved.IsDir() && moved.Cluster() != 0 {
		if err := op.relink(moved.Cluster(), dst.backing); err != nil {
			return err
		}
	}

	if err := op.storeDirectory(dst); err != nil {
		return err
	}
	if err := op.shrinkDirectory(src); err != nil {
		return err
	}
	if err := op.storeDirectory(src); err != nil {
		return err
	}
	if err := op.commit(); err != nil {
		return err
	}

	glog.V(1).Infof("fat16: renamed %q to %q", oldPath, newPath)
	return nil
}

// relink points the ".." entry of the directory at c to parent.
func (op *operation) relink(c uint16, parent backing) error {
	d, err := op.loadDirectory(chainBacking(c))
	if err != nil {
		return err
	}
	defer op.releaseDirectory(d)

	idx, ok := d.lookup(dotDotName, isDirectory)
	if !ok {
		return nil
	}
	e := d.entry(idx)
	e.FirstClusterLO = 0
	if parent.kind == chainBacked {
		e.FirstClusterLO = parent.cluster
	}
	d.setEntry(idx, &e)
	return op.storeDirectory(d)
}

// update applies fn to the entry of path and stores it.
func (v *Volume) update(path string, fn func(e *DirEntry)) error {
	op, err := v.begin(true)
	defer op.close()
	if err != nil {
		return err
	}

	parent, idx, err := op.resolve(path, nil)
	if err != nil {
		return err
	}
	e := parent.entry(idx)
	fn(&e)
	parent.setEntry(idx, &e)
	return op.storeDirectory(parent)
}

// SetAttributes replaces the read only, hidden, system and archive flags of
// an entry.
func (v *Volume) SetAttributes(path string, attr uint8) (err error) {
	defer func() { observe("set_attributes", err) }()

	const mask = AttrReadOnly | AttrHidden | AttrSystem | AttrArchive
	return v.update(path, func(e *DirEntry) {
		e.Flags = e.Flags&^mask | attr&mask
	})
}

// SetModTime sets the access and modification time of an entry.
func (v *Volume) SetModTime(path string, atime, mtime time.Time) (err error) {
	defer func() { observe("set_mod_time", err) }()

	return v.update(path, func(e *DirEntry) {
		e.WriteDate, e.WriteTime = MarshalTimestamp(mtime)
		e.AccessDate, _ = MarshalTimestamp(atime)
	})
}
