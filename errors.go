package fat16

import (
	"errors"
	"fmt"
	"strings"
)

// These errors may occur while processing a volume operation.
// All returned errors are decorated by checkpoint, use errors.Is to check for them.
var (
	// ErrNotFound indicates that a path segment or the leaf entry does not exist.
	ErrNotFound = errors.New("path does not exist")
	// ErrExist indicates that a create operation targets an occupied name.
	ErrExist = errors.New("already exists")
	// ErrNoSpace indicates that no free directory slot or cluster is left.
	ErrNoSpace = errors.New("no space left on volume")
	// ErrDevice indicates that a sector read or write failed.
	ErrDevice = errors.New("device error")

	ErrInvalidName       = errors.New("invalid 8.3 name")
	ErrInvalidBootSector = errors.New("invalid boot sector")
	ErrCorrupt           = errors.New("volume is corrupted")
	ErrNotDirectory      = errors.New("not a directory")
	ErrIsDirectory       = errors.New("is a directory")
	ErrNotEmpty          = errors.New("directory not empty")
)

// PathError is returned when path resolution stops at a segment which does
// not name a directory.
type PathError struct {
	Path string
	// Segment is the index of the failing segment within the path.
	Segment int
	Name    string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("segment %d (%q) of %q does not exist", e.Segment, e.Name, e.Path)
}

func (e *PathError) Unwrap() error {
	return ErrNotFound
}

// splitPath returns the non empty segments of a '/' separated path.
func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
