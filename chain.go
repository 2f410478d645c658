package fat16

import (
	"github.com/golang/glog"

	"github.com/aligator/fat16/checkpoint"
	"github.com/aligator/fat16/heap"
)

// clusters returns all clusters of the chain starting at c.
func (op *operation) clusters(c uint16) ([]uint16, error) {
	var result []uint16
	for {
		result = append(result, c)
		if uint32(len(result)) > op.fat.limit {
			return nil, checkpoint.Errorf(ErrCorrupt, "chain starting at %d contains a loop", result[0])
		}

		next, end, err := op.fat.next(c)
		if err != nil {
			return nil, err
		}
		if end {
			return result, nil
		}
		c = next
	}
}

// chainLength counts the clusters of the chain starting at c.
func (op *operation) chainLength(c uint16) (uint32, error) {
	chain, err := op.clusters(c)
	if err != nil {
		return 0, err
	}
	return uint32(len(chain)), nil
}

// allocCluster takes the first free cluster, marks it as a chain of one
// cluster and clears its content on disk.
func (op *operation) allocCluster() (uint16, error) {
	c, ok := op.fat.findFree()
	if !ok {
		return 0, checkpoint.Errorf(ErrNoSpace, "no free cluster")
	}
	op.fat.set(c, clusterEOCValue)
	op.fatDirty = true

	if err := op.zeroCluster(c); err != nil {
		return 0, err
	}
	return c, nil
}

// appendChain adds n clusters to the end of the chain starting at c.
func (op *operation) appendChain(c uint16, n uint32) error {
	chain, err := op.clusters(c)
	if err != nil {
		return err
	}
	tail := chain[len(chain)-1]

	for i := uint32(0); i < n; i++ {
		next, ok := op.fat.findFree()
		if !ok {
			return checkpoint.Errorf(ErrNoSpace, "appended %d of %d clusters", i, n)
		}
		op.fat.set(tail, next)
		op.fat.set(next, clusterEOCValue)
		op.fatDirty = true

		if err := op.zeroCluster(next); err != nil {
			return err
		}
		tail = next
	}

	glog.V(2).Infof("fat16: appended %d clusters to chain %d", n, c)
	return nil
}

// popChain removes the last n clusters from the chain starting at c and
// marks them free. The first cluster is never removed.
func (op *operation) popChain(c uint16, n uint32) error {
	chain, err := op.clusters(c)
	if err != nil {
		return err
	}
	if n >= uint32(len(chain)) {
		return checkpoint.Errorf(ErrCorrupt, "cannot pop %d of %d clusters", n, len(chain))
	}

	keep := uint32(len(chain)) - n
	for _, removed := range chain[keep:] {
		op.fat.set(removed, clusterFree)
	}
	op.fat.set(chain[keep-1], clusterEOCValue)
	op.fatDirty = n > 0 || op.fatDirty

	glog.V(2).Infof("fat16: popped %d clusters from chain %d", n, c)
	return nil
}

// fitChainToBytes grows or shrinks the chain starting at c to the number of
// clusters needed for n bytes. A chain keeps at least one cluster.
func (op *operation) fitChainToBytes(c uint16, n uint32) error {
	want := op.geo.clustersFor(n)
	if want == 0 {
		want = 1
	}

	have, err := op.chainLength(c)
	if err != nil {
		return err
	}

	switch {
	case want > have:
		return op.appendChain(c, want-have)
	case want < have:
		return op.popChain(c, have-want)
	}
	return nil
}

// freeChain marks every cluster of the chain starting at c free.
func (op *operation) freeChain(c uint16) error {
	chain, err := op.clusters(c)
	if err != nil {
		return err
	}
	for _, cluster := range chain {
		op.fat.set(cluster, clusterFree)
	}
	op.fatDirty = true
	return nil
}

func (op *operation) zeroCluster(c uint16) error {
	if op.zero == nil {
		buf, _, err := op.alloc(op.geo.bytesPerCluster)
		if err != nil {
			return err
		}
		op.zero = buf
	}
	return op.write(op.geo.clusterLBA(c), op.geo.sectorsPerCluster, op.zero)
}

// readChain reads up to len(p) bytes from the beginning of the chain.
func (op *operation) readChain(c uint16, p []byte) (int, error) {
	return op.readChainAt(c, p, 0)
}

// readChainAt reads up to len(p) bytes of the chain starting at byte offset
// off. It stops early at the end of the chain.
func (op *operation) readChainAt(c uint16, p []byte, off uint32) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	chain, err := op.clusters(c)
	if err != nil {
		return 0, err
	}

	bpc := op.geo.bytesPerCluster
	skip := off / bpc
	if skip >= uint32(len(chain)) {
		return 0, nil
	}
	inner := off % bpc

	var scratch []byte
	done := 0
	for _, cluster := range chain[skip:] {
		if done == len(p) {
			break
		}
		lba := op.geo.clusterLBA(cluster)

		// Whole clusters are read directly into p.
		if inner == 0 && len(p)-done >= int(bpc) {
			if err := op.read(lba, op.geo.sectorsPerCluster, p[done:done+int(bpc)]); err != nil {
				return done, err
			}
			done += int(bpc)
			continue
		}

		if scratch == nil {
			var addr heap.Address
			scratch, addr, err = op.alloc(bpc)
			if err != nil {
				return done, err
			}
			defer op.release(addr)
		}
		if err := op.read(lba, op.geo.sectorsPerCluster, scratch); err != nil {
			return done, err
		}
		done += copy(p[done:], scratch[inner:])
		inner = 0
	}
	return done, nil
}

// writeChain writes p to the beginning of the chain starting at c. The chain
// must be long enough to hold p. The rest of a partially written last
// cluster is cleared.
func (op *operation) writeChain(c uint16, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	chain, err := op.clusters(c)
	if err != nil {
		return err
	}

	bpc := int(op.geo.bytesPerCluster)
	if need := (len(p) + bpc - 1) / bpc; need > len(chain) {
		return checkpoint.Errorf(ErrCorrupt, "chain %d has %d clusters, need %d", c, len(chain), need)
	}

	done := 0
	for _, cluster := range chain {
		if done == len(p) {
			break
		}
		lba := op.geo.clusterLBA(cluster)

		if len(p)-done >= bpc {
			if err := op.write(lba, op.geo.sectorsPerCluster, p[done:done+bpc]); err != nil {
				return err
			}
			done += bpc
			continue
		}

		scratch, addr, err := op.alloc(uint32(bpc))
		if err != nil {
			return err
		}
		done += copy(scratch, p[done:])
		err = op.write(lba, op.geo.sectorsPerCluster, scratch)
		op.release(addr)
		if err != nil {
			return err
		}
	}
	return nil
}
