package fat16

import (
	"testing"
	"time"

	"github.com/aligator/fat16/blockdevice"
	"github.com/aligator/fat16/heap"
)

// testSectors is the size of the test volumes: 2 MiB, one sector per cluster.
const testSectors = 4096

var testTime = time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC)

func testingArena(t *testing.T) *heap.Arena {
	t.Helper()
	arena, err := heap.New(heap.DefaultOrigin, 256*1024)
	if err != nil {
		t.Fatal(err)
	}
	return arena
}

// testingFormat formats dev and returns a Volume for it which has not been
// set up yet.
func testingFormat(t *testing.T, dev blockdevice.Device, opts FormatOptions) *Volume {
	t.Helper()
	if _, err := Format(dev, opts); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	v, err := New(dev, testingArena(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	v.now = func() time.Time { return testTime }
	return v
}

// testingNew returns a formatted and set up volume on a memory device.
func testingNew(t *testing.T) *Volume {
	t.Helper()
	v := testingFormat(t, blockdevice.NewMemory(testSectors), FormatOptions{})
	if _, err := v.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return v
}

// testingOperation starts an operation with a loaded FAT which is closed at
// the end of the test.
func testingOperation(t *testing.T, v *Volume) *operation {
	t.Helper()
	op, err := v.begin(true)
	t.Cleanup(op.close)
	if err != nil {
		t.Fatalf("begin() error = %v", err)
	}
	return op
}

// checkArenaEmpty verifies that an operation released all its memory.
func checkArenaEmpty(t *testing.T, v *Volume) {
	t.Helper()
	if stats := v.arena.Stats(); stats.Used != 0 {
		t.Errorf("arena still has %d bytes in use", stats.Used)
	}
}
