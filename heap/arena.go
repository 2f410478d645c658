// Package heap implements the arena allocator that hands out scratch buffers
// to the filesystem.
//
// An Arena manages a single memory region starting at a fixed origin. The
// region is tiled by blocks, each made of a header followed by its payload.
// The blocks are kept as explicit records sorted by offset: the next block
// always starts at this block's offset plus this block's size. The last
// record is a sentinel whose size is not larger than the header and which
// marks the end of the used part of the arena.
//
// Arenas are not safe for concurrent use.
package heap

import (
	"errors"
	"sort"

	"github.com/aligator/fat16/checkpoint"
	"github.com/golang/glog"
)

const (
	// HeaderSize is the size of a block header: one flag byte and the
	// uint32 block size (including the header).
	HeaderSize = 5

	// DefaultOrigin is the address of the first block header.
	DefaultOrigin Address = 0x10000

	// DefaultCapacity is the arena size used when none is configured.
	DefaultCapacity = 4 * 1024 * 1024
)

// Address is the address of a payload region inside an arena.
type Address uint32

// Nil is never a valid payload address.
const Nil Address = 0

// These errors may occur while allocating or releasing.
var (
	ErrNoSpace        = errors.New("no block large enough")
	ErrReserved       = errors.New("block is reserved")
	ErrInvalidAddress = errors.New("address does not name a block")
	ErrNotAllocated   = errors.New("block is not allocated")
	ErrInvalidArena   = errors.New("invalid arena configuration")
)

type block struct {
	offset   uint32
	size     uint32
	occupied bool
	reserved bool
}

func (b block) isSentinel() bool {
	return b.size <= HeaderSize
}

func (b block) isFree() bool {
	return !b.occupied && !b.reserved && !b.isSentinel()
}

// Arena is an explicit allocator context. It is created once and lives as
// long as its users.
type Arena struct {
	origin   Address
	capacity uint32
	mem      []byte

	// blocks tile mem from offset 0, the last one is the sentinel.
	blocks []block
}

// New creates an empty arena of capacity bytes whose first block header is
// located at origin.
func New(origin Address, capacity uint32) (*Arena, error) {
	if origin == Nil {
		return nil, checkpoint.Errorf(ErrInvalidArena, "origin must not be %#x", Nil)
	}
	if capacity <= HeaderSize {
		return nil, checkpoint.Errorf(ErrInvalidArena, "capacity %d is too small", capacity)
	}
	if uint64(origin)+uint64(capacity) > 1<<32 {
		return nil, checkpoint.Errorf(ErrInvalidArena, "arena [%#x, +%d) exceeds the address space", origin, capacity)
	}

	return &Arena{
		origin:   origin,
		capacity: capacity,
		mem:      make([]byte, capacity),
		blocks:   []block{{offset: 0, size: 0}},
	}, nil
}

// Origin returns the address of the first block header.
func (a *Arena) Origin() Address {
	return a.origin
}

// Capacity returns the size of the arena in bytes.
func (a *Arena) Capacity() uint32 {
	return a.capacity
}

// Allocate returns the address of a zeroed payload of at least n bytes.
// If no block is large enough it returns Nil and ErrNoSpace.
func (a *Arena) Allocate(n uint32) (Address, error) {
	return a.allocate(n, false)
}

// Reserve carves a block for memory which is used outside the allocator's
// control. Release refuses to free it.
func (a *Arena) Reserve(n uint32) (Address, error) {
	return a.allocate(n, true)
}

func (a *Arena) allocate(n uint32, reserved bool) (Address, error) {
	// A block without payload would be indistinguishable from the sentinel.
	if n == 0 {
		n = 1
	}
	if uint64(n)+HeaderSize > uint64(a.capacity) {
		return Nil, checkpoint.Errorf(ErrNoSpace, "request of %d bytes exceeds the arena", n)
	}

	a.optimize()

	i, ok := a.find(n)
	if !ok {
		glog.V(2).Infof("heap: no block for %d bytes (%+v)", n, a.Stats())
		return Nil, checkpoint.Errorf(ErrNoSpace, "request of %d bytes", n)
	}
	a.split(i, n)

	b := &a.blocks[i]
	b.occupied = !reserved
	b.reserved = reserved

	payload := a.mem[b.offset+HeaderSize : b.offset+b.size]
	for j := range payload {
		payload[j] = 0
	}

	return a.address(b.offset), nil
}

// optimize merges every free block with the free blocks directly following it.
func (a *Arena) optimize() {
	for i := 0; i < len(a.blocks)-1; i++ {
		if !a.blocks[i].isFree() {
			continue
		}

		j := i + 1
		for j < len(a.blocks) && a.blocks[j].isFree() {
			a.blocks[i].size += a.blocks[j].size
			j++
		}
		if j > i+1 {
			a.blocks = append(a.blocks[:i+1], a.blocks[j:]...)
		}
	}
}

// find returns the index of the first free block with a payload of at least n
// bytes. If no such block exists before the sentinel, the sentinel is turned
// into a block of exactly n bytes if the arena has room for it.
func (a *Arena) find(n uint32) (int, bool) {
	last := len(a.blocks) - 1
	for i := 0; i < last; i++ {
		b := a.blocks[i]
		if b.isFree() && b.size-HeaderSize >= n {
			return i, true
		}
	}

	end := a.blocks[last].offset
	size := n + HeaderSize
	if uint64(end)+uint64(size) > uint64(a.capacity) {
		return 0, false
	}

	a.blocks[last] = block{offset: end, size: size}
	a.blocks = append(a.blocks, block{offset: end + size})
	return last, true
}

// split carves the unused tail of block i into a new free block, if the tail
// is larger than a header. Otherwise the block keeps its size.
func (a *Arena) split(i int, n uint32) {
	b := a.blocks[i]
	size := n + HeaderSize
	excess := b.size - size
	if excess <= HeaderSize {
		return
	}

	a.blocks[i].size = size
	a.blocks = append(a.blocks, block{})
	copy(a.blocks[i+2:], a.blocks[i+1:])
	a.blocks[i+1] = block{offset: b.offset + size, size: excess}
}

// Release frees the block whose payload starts at addr.
func (a *Arena) Release(addr Address) error {
	i, err := a.lookup(addr)
	if err != nil {
		return err
	}

	b := &a.blocks[i]
	if b.reserved {
		return checkpoint.Errorf(ErrReserved, "release of %#x", addr)
	}
	if !b.occupied {
		return checkpoint.Errorf(ErrNotAllocated, "release of %#x", addr)
	}
	b.occupied = false

	// Freeing the last live block moves the end of the arena back to the
	// start of the free run it ends.
	if a.blocks[i+1].isSentinel() {
		for i > 0 && a.blocks[i-1].isFree() {
			i--
		}
		a.blocks[i] = block{offset: a.blocks[i].offset}
		a.blocks = a.blocks[:i+1]
	}
	return nil
}

// Bytes returns the whole payload of the block at addr.
func (a *Arena) Bytes(addr Address) ([]byte, error) {
	i, err := a.lookup(addr)
	if err != nil {
		return nil, err
	}

	b := a.blocks[i]
	if !b.occupied && !b.reserved {
		return nil, checkpoint.Errorf(ErrNotAllocated, "access of %#x", addr)
	}
	return a.mem[b.offset+HeaderSize : b.offset+b.size : b.offset+b.size], nil
}

func (a *Arena) lookup(addr Address) (int, error) {
	if addr < a.origin+HeaderSize || uint64(addr) >= uint64(a.origin)+uint64(a.capacity) {
		return 0, checkpoint.Errorf(ErrInvalidAddress, "%#x is outside of the arena", addr)
	}

	offset := uint32(addr-a.origin) - HeaderSize
	last := len(a.blocks) - 1
	i := sort.Search(last, func(i int) bool {
		return a.blocks[i].offset >= offset
	})
	if i == last || a.blocks[i].offset != offset {
		return 0, checkpoint.Errorf(ErrInvalidAddress, "%#x", addr)
	}
	return i, nil
}

func (a *Arena) address(offset uint32) Address {
	return a.origin + Address(offset) + HeaderSize
}

// Stats describes the usage of an arena.
type Stats struct {
	// Used is the number of bytes held by occupied and reserved blocks,
	// headers included.
	Used uint32
	// Free is Capacity - Used.
	Free uint32
	// Largest is the largest payload a single Allocate can currently return.
	Largest uint32
	// Blocks is the number of blocks, excluding the sentinel.
	Blocks int
}

// Stats returns the current usage of the arena.
func (a *Arena) Stats() Stats {
	var s Stats
	last := len(a.blocks) - 1
	for _, b := range a.blocks[:last] {
		if b.occupied || b.reserved {
			s.Used += b.size
		}
	}
	s.Free = a.capacity - s.Used
	s.Blocks = last

	// Runs of free blocks count as one since Allocate merges them first.
	var run uint32
	for _, b := range a.blocks[:last] {
		if !b.isFree() {
			run = 0
			continue
		}
		run += b.size
		if run-HeaderSize > s.Largest {
			s.Largest = run - HeaderSize
		}
	}
	if tail := a.capacity - a.blocks[last].offset; tail > HeaderSize && tail-HeaderSize > s.Largest {
		s.Largest = tail - HeaderSize
	}
	return s
}

// BlockInfo describes one block of an arena.
type BlockInfo struct {
	Address  Address
	Size     uint32
	Occupied bool
	Reserved bool
}

// Blocks lists all blocks in address order, excluding the sentinel.
func (a *Arena) Blocks() []BlockInfo {
	last := len(a.blocks) - 1
	infos := make([]BlockInfo, last)
	for i, b := range a.blocks[:last] {
		infos[i] = BlockInfo{
			Address:  a.address(b.offset),
			Size:     b.size,
			Occupied: b.occupied,
			Reserved: b.reserved,
		}
	}
	return infos
}

// Validate checks that the blocks tile the arena up to the sentinel.
func (a *Arena) Validate() error {
	var offset uint32
	for i, b := range a.blocks {
		if b.offset != offset {
			return checkpoint.Errorf(ErrInvalidArena, "block %d starts at %d, want %d", i, b.offset, offset)
		}
		if i == len(a.blocks)-1 {
			if !b.isSentinel() || b.occupied || b.reserved {
				return checkpoint.Errorf(ErrInvalidArena, "block %d is not a sentinel", i)
			}
			break
		}
		if b.isSentinel() {
			return checkpoint.Errorf(ErrInvalidArena, "block %d has size %d", i, b.size)
		}
		offset += b.size
	}
	if offset > a.capacity {
		return checkpoint.Errorf(ErrInvalidArena, "blocks end at %d, beyond capacity %d", offset, a.capacity)
	}
	return nil
}
