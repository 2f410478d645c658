package fat16

import (
	"os"
	"time"
)

// FileInfo returns an os.FileInfo describing the entry.
// Sys returns the DirEntry.
func (e *DirEntry) FileInfo() os.FileInfo {
	return entryFileInfo{entry: *e}
}

type entryFileInfo struct {
	entry DirEntry
}

func (e entryFileInfo) Name() string {
	return e.entry.FileName()
}

func (e entryFileInfo) Size() int64 {
	return int64(e.entry.Size)
}

func (e entryFileInfo) Mode() os.FileMode {
	mode := os.FileMode(0o666)
	if e.entry.Flags&AttrReadOnly != 0 {
		mode = 0o444
	}
	if e.IsDir() {
		return mode | 0o111 | os.ModeDir
	}
	return mode
}

// ModTime returns the write time of the entry, or time.Time{} if the entry
// has no valid write date.
func (e entryFileInfo) ModTime() time.Time {
	return ParseTimestamp(e.entry.WriteDate, e.entry.WriteTime)
}

func (e entryFileInfo) IsDir() bool {
	return e.entry.IsDir()
}

func (e entryFileInfo) Sys() interface{} {
	return e.entry
}
