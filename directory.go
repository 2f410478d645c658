package fat16

import (
	"fmt"

	"github.com/aligator/fat16/checkpoint"
	"github.com/aligator/fat16/heap"
)

type backingKind uint8

const (
	rootRegion backingKind = iota
	chainBacked
)

// backing tells where the entries of a directory are stored: either in the
// fixed root directory region or in a cluster chain.
type backing struct {
	kind    backingKind
	cluster uint16
}

var rootBacking = backing{kind: rootRegion}

func chainBacking(c uint16) backing {
	return backing{kind: chainBacked, cluster: c}
}

// backingOf returns the storage of the directory described by e.
// A ".." entry pointing at cluster 0 refers to the root directory.
func backingOf(e *DirEntry) backing {
	if e.Cluster() == 0 {
		return rootBacking
	}
	return chainBacking(e.Cluster())
}

func (b backing) String() string {
	if b.kind == rootRegion {
		return "root"
	}
	return fmt.Sprintf("chain %d", b.cluster)
}

// directory is a loaded entry array together with its storage.
type directory struct {
	backing backing
	raw     []byte
	addr    heap.Address
}

func (d *directory) len() int {
	return len(d.raw) / DirEntrySize
}

func (d *directory) entry(i int) DirEntry {
	return decodeEntry(d.raw[i*DirEntrySize:])
}

func (d *directory) setEntry(i int, e *DirEntry) {
	e.encode(d.raw[i*DirEntrySize:])
}

// each calls fn for every used entry until the end marker is reached.
// Deleted entries and volume labels are skipped. Iteration stops when fn
// returns false.
func (d *directory) each(fn func(i int, e *DirEntry) bool) {
	for i := 0; i < d.len(); i++ {
		e := d.entry(i)
		if e.IsEnd() {
			return
		}
		if e.IsDeleted() || e.Flags&AttrVolumeLabel != 0 {
			continue
		}
		if !fn(i, &e) {
			return
		}
	}
}

// lookup returns the index of the first entry named name which matches
// pred. A nil pred matches files and directories.
func (d *directory) lookup(name [nameLen]byte, pred func(*DirEntry) bool) (int, bool) {
	found := -1
	d.each(func(i int, e *DirEntry) bool {
		if equalName(e.Name, name) && (pred == nil || pred(e)) {
			found = i
			return false
		}
		return true
	})
	return found, found >= 0
}

// empty reports whether the directory only contains "." and "..".
func (d *directory) empty() bool {
	result := true
	d.each(func(_ int, e *DirEntry) bool {
		if e.Name != dotName && e.Name != dotDotName {
			result = false
		}
		return result
	})
	return result
}

// lastUsed returns the index of the last entry which is not available.
func (d *directory) lastUsed() int {
	last := -1
	for i := 0; i < d.len(); i++ {
		e := d.entry(i)
		if e.IsEnd() {
			break
		}
		if !e.IsDeleted() {
			last = i
		}
	}
	return last
}

func isDirectory(e *DirEntry) bool {
	return e.IsDir()
}

func isFile(e *DirEntry) bool {
	return e.IsFile()
}

// loadDirectory reads all entries of a directory into arena memory.
func (op *operation) loadDirectory(b backing) (*directory, error) {
	if b.kind == rootRegion {
		raw, addr, err := op.alloc(op.geo.rootSectors * 512)
		if err != nil {
			return nil, err
		}
		if err := op.read(op.geo.rootStart, op.geo.rootSectors, raw); err != nil {
			return nil, err
		}
		return &directory{backing: b, raw: raw[:op.geo.rootEntries*DirEntrySize], addr: addr}, nil
	}

	length, err := op.chainLength(b.cluster)
	if err != nil {
		return nil, err
	}
	raw, addr, err := op.alloc(length * op.geo.bytesPerCluster)
	if err != nil {
		return nil, err
	}
	if _, err := op.readChain(b.cluster, raw); err != nil {
		return nil, err
	}
	return &directory{backing: b, raw: raw, addr: addr}, nil
}

// storeDirectory writes the entries of d back to their storage.
func (op *operation) storeDirectory(d *directory) error {
	if d.backing.kind == rootRegion {
		return op.write(op.geo.rootStart, op.geo.rootSectors, d.raw)
	}
	return op.writeChain(d.backing.cluster, d.raw)
}

func (op *operation) releaseDirectory(d *directory) {
	if d != nil {
		op.release(d.addr)
	}
}

// growDirectory appends one cluster to a chain backed directory.
// The root region has a fixed size.
func (op *operation) growDirectory(d *directory) error {
	if d.backing.kind == rootRegion {
		return checkpoint.Errorf(ErrNoSpace, "root directory is full")
	}

	size := uint32(len(d.raw)) + op.geo.bytesPerCluster
	if err := op.fitChainToBytes(d.backing.cluster, size); err != nil {
		return err
	}

	raw, addr, err := op.alloc(size)
	if err != nil {
		return err
	}
	copy(raw, d.raw)
	op.release(d.addr)
	d.raw, d.addr = raw, addr
	return nil
}

// shrinkDirectory releases trailing clusters of a chain backed directory
// which only contain available entries. Trailing deleted entries become end
// markers.
func (op *operation) shrinkDirectory(d *directory) error {
	if d.backing.kind == rootRegion {
		return nil
	}

	last := d.lastUsed()
	for i := last + 1; i < d.len(); i++ {
		d.raw[i*DirEntrySize] = nameEnd
	}

	size := uint32(last+1) * DirEntrySize
	if size == 0 {
		size = 1
	}
	keep := op.geo.clustersFor(size) * op.geo.bytesPerCluster
	if keep >= uint32(len(d.raw)) {
		return nil
	}
	if err := op.fitChainToBytes(d.backing.cluster, keep); err != nil {
		return err
	}
	d.raw = d.raw[:keep]
	return nil
}

// prepareSlot returns the index of the first available slot of d for an
// entry named name. An existing entry of the same kind is reported as
// ErrExist. A full chain backed directory is grown.
func (op *operation) prepareSlot(d *directory, name [nameLen]byte, pred func(*DirEntry) bool) (int, error) {
	slot := -1
	for i := 0; i < d.len(); i++ {
		e := d.entry(i)
		if e.IsAvailable() {
			if slot < 0 {
				slot = i
			}
			if e.IsEnd() {
				break
			}
			continue
		}
		if e.Flags&AttrVolumeLabel == 0 && equalName(e.Name, name) && pred(&e) {
			return 0, checkpoint.Errorf(ErrExist, "%q", DecodeName(name))
		}
	}
	if slot >= 0 {
		return slot, nil
	}

	slot = d.len()
	if err := op.growDirectory(d); err != nil {
		return 0, err
	}
	return slot, nil
}

// traversePath resolves every segment of path except the last one and
// returns the directory containing the leaf together with the leaf name.
// The leaf is "" if path names the root directory.
func (op *operation) traversePath(path string) (*directory, string, error) {
	d, err := op.loadDirectory(rootBacking)
	if err != nil {
		return nil, "", err
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return d, "", nil
	}

	for i, segment := range segments[:len(segments)-1] {
		name, err := EncodeName(segment)
		if err != nil {
			op.releaseDirectory(d)
			return nil, "", checkpoint.Wrap(err, &PathError{Path: path, Segment: i, Name: segment})
		}

		idx, ok := d.lookup(name, isDirectory)
		if !ok {
			op.releaseDirectory(d)
			return nil, "", checkpoint.New(&PathError{Path: path, Segment: i, Name: segment})
		}
		e := d.entry(idx)
		op.releaseDirectory(d)

		// visited holds the chain of directories the path is inside of.
		switch name {
		case dotName:
		case dotDotName:
			if len(op.visited) > 0 {
				op.visited = op.visited[:len(op.visited)-1]
			}
		default:
			op.visited = append(op.visited, e.Cluster())
		}
		d, err = op.loadDirectory(backingOf(&e))
		if err != nil {
			return nil, "", err
		}
	}

	return d, segments[len(segments)-1], nil
}

// openDirectory resolves a path which names a directory and loads it.
func (op *operation) openDirectory(path string) (*directory, error) {
	parent, leaf, err := op.traversePath(path)
	if err != nil {
		return nil, err
	}
	if leaf == "" {
		return parent, nil
	}
	defer op.releaseDirectory(parent)

	name, err := EncodeName(leaf)
	if err != nil {
		return nil, err
	}
	idx, ok := parent.lookup(name, nil)
	if !ok {
		return nil, checkpoint.Errorf(ErrNotFound, "%q", path)
	}
	e := parent.entry(idx)
	if !e.IsDir() {
		return nil, checkpoint.Errorf(ErrNotDirectory, "%q", path)
	}
	op.visited = append(op.visited, e.Cluster())
	return op.loadDirectory(backingOf(&e))
}
