// Package resource enumerates configuration/mapper XML files from the
// filesystem, detecting whether a given root is a plain directory or an
// archive (component N).
package resource

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogf/gf/errors/gerror"
)

// zipMagic is the four-byte local-file-header signature every zip (and
// therefore jar-style archive) begins with.
var zipMagic = [4]byte{0x50, 0x4B, 0x03, 0x04}

// IsArchive reports whether path names a zip-format archive by reading its
// first four bytes, rather than trusting its file extension.
func IsArchive(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, gerror.Wrap(err, "resource: open "+path)
	}
	defer f.Close()

	var header [4]byte
	n, err := io.ReadFull(f, header[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return false, gerror.Wrap(err, "resource: read header of "+path)
	}
	return n == 4 && header == zipMagic, nil
}

// Entry is one discovered resource: its logical name (relative path,
// forward-slash separated) and a function to open its contents.
type Entry struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// List enumerates every file under root whose name matches suffix (e.g.
// ".xml"), dispatching to ListDirectory or ListArchive depending on what
// IsArchive reports for root.
func List(root, suffix string) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, gerror.Wrap(err, "resource: stat "+root)
	}
	if info.IsDir() {
		return ListDirectory(root, suffix)
	}
	isArchive, err := IsArchive(root)
	if err != nil {
		return nil, err
	}
	if isArchive {
		return ListArchive(root, suffix)
	}
	return nil, gerror.Newf("resource: %s is neither a directory nor a recognized archive", root)
}

// ListDirectory walks a plain directory tree, verifying each candidate is
// a regular file before listing it.
func ListDirectory(root, suffix string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if suffix != "" && !strings.HasSuffix(path, suffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		capturedPath := path
		entries = append(entries, Entry{
			Name: filepath.ToSlash(rel),
			Open: func() (io.ReadCloser, error) { return os.Open(capturedPath) },
		})
		return nil
	})
	if err != nil {
		return nil, gerror.Wrap(err, "resource: walk "+root)
	}
	return entries, nil
}

// ListArchive enumerates a zip archive's entries matching suffix. The
// archive file stays open after it returns so each entry's Open can read
// from it; it is not closed by this package.
func ListArchive(archivePath, suffix string) ([]Entry, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, gerror.Wrap(err, "resource: open archive "+archivePath)
	}

	var entries []Entry
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if suffix != "" && !strings.HasSuffix(f.Name, suffix) {
			continue
		}
		zf := f
		entries = append(entries, Entry{
			Name: zf.Name,
			Open: func() (io.ReadCloser, error) { return zf.Open() },
		})
	}
	return entries, nil
}
