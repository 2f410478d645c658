package filesystem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aligator/fat16"
	"github.com/aligator/fat16/blockdevice"
	"github.com/aligator/fat16/filesystem"
	"github.com/aligator/fat16/heap"
)

func newFilesystem(t *testing.T) *filesystem.Filesystem {
	dev := blockdevice.NewMemory(4096)
	_, err := fat16.Format(dev, fat16.FormatOptions{})
	require.NoError(t, err)

	arena, err := heap.New(heap.DefaultOrigin, 256*1024)
	require.NoError(t, err)
	vol, err := fat16.New(dev, arena)
	require.NoError(t, err)

	fs, err := filesystem.New(filesystem.FAT16, vol)
	require.NoError(t, err)
	return fs
}

func TestNew(t *testing.T) {
	_, err := filesystem.New(filesystem.Backend(7), nil)
	require.ErrorIs(t, err, filesystem.ErrNotReady)

	_, err = filesystem.New(filesystem.FAT16, nil)
	require.ErrorIs(t, err, filesystem.ErrNotReady)
}

func TestNotReady(t *testing.T) {
	var fs filesystem.Filesystem

	_, err := fs.Setup()
	require.ErrorIs(t, err, filesystem.ErrNotReady)
	require.ErrorIs(t, fs.CreateFile("/a"), filesystem.ErrNotReady)
	require.ErrorIs(t, fs.CreateDirectory("/a"), filesystem.ErrNotReady)
	require.ErrorIs(t, fs.WriteFile("/a", nil), filesystem.ErrNotReady)
	_, err = fs.ReadFile("/a", make([]byte, 1))
	require.ErrorIs(t, err, filesystem.ErrNotReady)
	_, err = fs.FileSize("/a")
	require.ErrorIs(t, err, filesystem.ErrNotReady)
	require.False(t, fs.PathExists("/"))
	require.False(t, fs.IsFile("/a"))
}

func TestFilesystem(t *testing.T) {
	fs := newFilesystem(t)
	require.Equal(t, "fat16", fs.Backend().String())

	initialized, err := fs.Setup()
	require.NoError(t, err)
	require.True(t, initialized)
	initialized, err = fs.Setup()
	require.NoError(t, err)
	require.False(t, initialized)

	// Directories are not created recursively.
	require.ErrorIs(t, fs.CreateDirectory("/a/b"), fat16.ErrNotFound)
	require.NoError(t, fs.CreateDirectory("/a"))
	require.NoError(t, fs.CreateDirectory("/a/b"))
	require.True(t, fs.PathExists("/a/b"))
	require.False(t, fs.IsFile("/a/b"))

	p := filesystem.JoinPaths("/a/b", "f.txt")
	require.NoError(t, fs.CreateFile(p))
	require.ErrorIs(t, fs.CreateFile(p), fat16.ErrExist)
	require.True(t, fs.IsFile(p))

	require.NoError(t, fs.WriteFile(p, []byte("hello")))
	buf := make([]byte, 5)
	n, err := fs.ReadFile(p, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, fs.WriteFile(p, []byte("hi")))
	size, err := fs.FileSize(p)
	require.NoError(t, err)
	require.EqualValues(t, 2, size)
	n, err = fs.ReadFile(p, buf)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))

	_, err = fs.FileSize("/a")
	require.ErrorIs(t, err, fat16.ErrIsDirectory)
}

func TestJoinPaths(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"/a", "b", "/a/b"},
		{"/a/", "/b", "/a/b"},
		{"a", "b/c.txt", "/a/b/c.txt"},
		{"/", "", "/"},
		{"/a/b", "..", "/a"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, filesystem.JoinPaths(tt.a, tt.b), "JoinPaths(%q, %q)", tt.a, tt.b)
	}
}
