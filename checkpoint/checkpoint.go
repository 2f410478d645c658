// Package checkpoint decorates errors with the location they passed through,
// which results in a short trail similar to a stacktrace.
// Each error added to a checkpoint can be checked by errors.Is and retrieved by errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps err by a new checkpoint carrying the caller location.
// It returns nil, if err == nil.
func From(err error) error {
	// io.EOF must be returned as io.EOF directly
	// https://github.com/golang/go/issues/39155
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}

	return newCheckpoint(err, nil)
}

// Wrap adds a checkpoint to prev and attaches err as the description of what
// went wrong at this point. Returns nil if prev == nil.
//
// This allows to predefine sentinel errors and keep the cause:
//  var ErrNoSpace = errors.New("no space left")
//
//  func allocate() error {
//  	err := scanFAT()
//  	return checkpoint.Wrap(err, ErrNoSpace)
//  }
// Both errors.Is(err, ErrNoSpace) and errors.Is(err, <error of scanFAT>) hold.
func Wrap(prev, err error) error {
	// io.EOF must be returned as io.EOF directly
	// https://github.com/golang/go/issues/39155
	if prev == nil || prev == io.EOF {
		return prev
	}

	return newCheckpoint(prev, err)
}

// New creates a checkpoint for a sentinel error which has no further cause.
func New(err error) error {
	if err == nil {
		return nil
	}
	return newCheckpoint(err, nil)
}

// Errorf creates a checkpoint for err with additional formatted detail.
// errors.Is(result, err) holds.
func Errorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return newCheckpoint(fmt.Errorf(format, args...), err)
}

// Frame is a single location recorded by a checkpoint.
type Frame struct {
	File string
	Line int
}

func (f Frame) String() string {
	if f.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}

// Trace returns the locations of all checkpoints in err, outermost first.
func Trace(err error) []Frame {
	var frames []Frame
	for err != nil {
		if c, ok := err.(*checkpoint); ok {
			frames = append(frames, c.frame)
		}
		err = errors.Unwrap(err)
	}
	return frames
}

type checkpoint struct {
	// err describes this checkpoint, it may be nil.
	err  error
	prev error

	frame Frame
}

func newCheckpoint(prev, err error) *checkpoint {
	// Skip newCheckpoint and the exported constructor.
	_, file, line, ok := runtime.Caller(2)

	c := &checkpoint{
		err:  err,
		prev: prev,
	}
	if ok {
		c.frame = Frame{File: filepath.Base(file), Line: line}
	}
	return c
}

func (e *checkpoint) Error() string {
	var b strings.Builder
	if e.err != nil {
		b.WriteString(e.err.Error())
		b.WriteString(": ")
	}
	b.WriteString(e.prev.Error())
	return b.String()
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	return e.err != nil && errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	return e.err != nil && errors.As(e.err, target)
}
