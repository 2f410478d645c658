package fat16

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"syscall"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func testingFs(t *testing.T) *Fs {
	t.Helper()
	return NewFs(testingNew(t))
}

func writeTestFile(t *testing.T, fsys afero.Fs, name, content string) {
	t.Helper()
	if err := afero.WriteFile(fsys, name, []byte(content), 0o666); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", name, err)
	}
}

func TestFs_WriteRead(t *testing.T) {
	fsys := testingFs(t)
	writeTestFile(t, fsys, "/hello.txt", "hello")

	got, err := afero.ReadFile(fsys, "hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("ReadFile() = %q, want %q", got, "hello")
	}

	f, err := fsys.OpenFile("/hello.txt", os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(" world"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err = afero.ReadFile(fsys, "/hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Errorf("ReadFile() after append = %q, want %q", got, "hello world")
	}

	// Truncating replaces the content.
	writeTestFile(t, fsys, "/hello.txt", "hi")
	info, err := fsys.Stat("/hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 2 {
		t.Errorf("size after truncate = %d, want 2", info.Size())
	}
}

func TestFs_OpenErrors(t *testing.T) {
	fsys := testingFs(t)
	writeTestFile(t, fsys, "/file", "x")
	if err := fsys.Mkdir("/dir", 0o777); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		path  string
		flag  int
		check func(error) bool
	}{
		{name: "missing file", path: "/missing", flag: os.O_RDONLY, check: os.IsNotExist},
		{name: "missing directory", path: "/missing/file", flag: os.O_RDWR | os.O_CREATE, check: os.IsNotExist},
		{name: "exclusive create", path: "/file", flag: os.O_RDWR | os.O_CREATE | os.O_EXCL, check: os.IsExist},
		{name: "write a directory", path: "/dir", flag: os.O_WRONLY, check: func(err error) bool { return errors.Is(err, syscall.EISDIR) }},
		{name: "file as directory", path: "/file/x", flag: os.O_RDONLY, check: os.IsNotExist},
		{name: "invalid name", path: "/toolongname", flag: os.O_RDWR | os.O_CREATE, check: func(err error) bool { return errors.Is(err, syscall.EINVAL) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fsys.OpenFile(tt.path, tt.flag, 0o666)
			if !tt.check(err) {
				t.Errorf("OpenFile(%q) unexpected error %v", tt.path, err)
			}
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) || pathErr.Path != tt.path {
				t.Errorf("OpenFile(%q) error %v is no *os.PathError for the path", tt.path, err)
			}
		})
	}
}

func TestFs_MkdirAll(t *testing.T) {
	fsys := testingFs(t)

	if err := fsys.MkdirAll("/a/b/c", 0o777); err != nil {
		t.Fatal(err)
	}
	// Existing directories are fine.
	if err := fsys.MkdirAll("a/b", 0o777); err != nil {
		t.Fatal(err)
	}
	info, err := fsys.Stat("/a/b/c")
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Errorf("/a/b/c is no directory")
	}

	writeTestFile(t, fsys, "/a/file", "")
	if err := fsys.MkdirAll("/a/file/d", 0o777); !errors.Is(err, syscall.ENOTDIR) {
		t.Errorf("MkdirAll() through a file error = %v, want %v", err, syscall.ENOTDIR)
	}
	if err := fsys.Mkdir("/a", 0o777); !os.IsExist(err) {
		t.Errorf("Mkdir() of an existing directory error = %v", err)
	}
}

func TestFs_Remove(t *testing.T) {
	fsys := testingFs(t)
	if err := fsys.MkdirAll("/a/b", 0o777); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, fsys, "/a/b/file", "content")
	writeTestFile(t, fsys, "/a/other", "content")
	writeTestFile(t, fsys, "/top", "content")

	if err := fsys.Remove("/a"); !errors.Is(err, syscall.ENOTEMPTY) {
		t.Errorf("Remove() of a non empty directory error = %v", err)
	}
	if err := fsys.RemoveAll("/a"); err != nil {
		t.Fatal(err)
	}
	if _, err := fsys.Stat("/a"); !os.IsNotExist(err) {
		t.Errorf("Stat() after RemoveAll error = %v", err)
	}
	if err := fsys.RemoveAll("/a"); err != nil {
		t.Errorf("RemoveAll() of a missing path error = %v", err)
	}

	if err := fsys.RemoveAll("/"); err != nil {
		t.Fatal(err)
	}
	entries, err := afero.ReadDir(fsys, "/")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("root still has %d entries", len(entries))
	}

	// All clusters are free again.
	info, err := fsys.vol.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.FreeClusters != info.TotalClusters {
		t.Errorf("free clusters = %d, want %d", info.FreeClusters, info.TotalClusters)
	}
}

func TestFs_Rename(t *testing.T) {
	fsys := testingFs(t)
	if err := fsys.Mkdir("/dir", 0o777); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, fsys, "/old.txt", "moved")

	if err := fsys.Rename("/old.txt", "/dir/new.txt"); err != nil {
		t.Fatal(err)
	}
	if exists, _ := afero.Exists(fsys, "/old.txt"); exists {
		t.Errorf("/old.txt still exists")
	}
	got, err := afero.ReadFile(fsys, "/dir/new.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "moved" {
		t.Errorf("content = %q", got)
	}

	if err := fsys.Rename("/missing", "/x"); !os.IsNotExist(err) {
		t.Errorf("Rename() of a missing file error = %v", err)
	}
}

func TestFs_ChmodChtimes(t *testing.T) {
	fsys := testingFs(t)
	writeTestFile(t, fsys, "/file", "x")

	if err := fsys.Chmod("/file", 0o444); err != nil {
		t.Fatal(err)
	}
	info, err := fsys.Stat("/file")
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode() != 0o444 {
		t.Errorf("mode = %v, want %v", info.Mode(), os.FileMode(0o444))
	}
	if _, err := fsys.OpenFile("/file", os.O_WRONLY, 0); !os.IsPermission(err) {
		t.Errorf("OpenFile() of a read only file error = %v", err)
	}
	if err := fsys.Chmod("/file", 0o644); err != nil {
		t.Fatal(err)
	}

	mtime := time.Date(2022, 5, 6, 7, 8, 10, 0, time.UTC)
	if err := fsys.Chtimes("/file", mtime, mtime); err != nil {
		t.Fatal(err)
	}
	info, err = fsys.Stat("/file")
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("ModTime() = %v, want %v", info.ModTime(), mtime)
	}
	if info.Mode() != 0o666 {
		t.Errorf("mode = %v, want %v", info.Mode(), os.FileMode(0o666))
	}

	if err := fsys.Chown("/file", 1, 1); err != nil {
		t.Errorf("Chown() error = %v", err)
	}
	if err := fsys.Chown("/missing", 1, 1); !os.IsNotExist(err) {
		t.Errorf("Chown() of a missing file error = %v", err)
	}
}

func TestIOFS(t *testing.T) {
	fsys := testingFs(t)
	if err := fsys.MkdirAll("/dir/sub", 0o777); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, fsys, "/hello.txt", "Hello World")
	writeTestFile(t, fsys, "/dir/sub/a.txt", "a")
	writeTestFile(t, fsys, "/dir/big.bin", string(make([]byte, 3000)))
	f, err := fsys.Create("/empty")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	iofs := afero.NewIOFS(fsys)
	if err := fstest.TestFS(iofs, "hello.txt", "empty", "dir/big.bin", "dir/sub/a.txt"); err != nil {
		t.Fatal(err)
	}

	var walked []string
	err = fs.WalkDir(iofs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		walked = append(walked, path)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(walked)
	want := []string{".", "dir", "dir/big.bin", "dir/sub", "dir/sub/a.txt", "empty", "hello.txt"}
	if diff := cmp.Diff(want, walked); diff != "" {
		t.Errorf("WalkDir mismatch (-want +got):\n%s", diff)
	}
}
