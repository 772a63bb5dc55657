package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Archive provides read access to the entries of an in-memory zip archive.
// Paths are normalized to forward slashes without a leading slash; an
// Archive is owned by a single import run and is never mutated after Open.
type Archive struct {
	files map[string]*zip.File
	paths []string // normalized, in archive order
}

// OpenArchive opens a zip-format byte blob. It fails with ErrArchiveFormat
// if the blob is not a valid zip container.
func OpenArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveFormat, err)
	}

	a := &Archive{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := normalizePath(f.Name)
		if _, seen := a.files[name]; !seen {
			a.paths = append(a.paths, name)
		}
		a.files[name] = f
	}
	return a, nil
}

// Has reports whether the archive contains an entry at path.
func (a *Archive) Has(path string) bool {
	_, ok := a.files[normalizePath(path)]
	return ok
}

// Paths returns the normalized paths of all entries in archive order.
func (a *Archive) Paths() []string {
	out := make([]string, len(a.paths))
	copy(out, a.paths)
	return out
}

// ReadBytes returns the raw contents of an entry. A missing entry is a
// normal outcome at every lookup site, reported as ok=false rather than an
// error; the pipeline routinely probes paths that may not exist.
func (a *Archive) ReadBytes(path string) ([]byte, bool) {
	f, ok := a.files[normalizePath(path)]
	if !ok {
		return nil, false
	}

	rc, err := f.Open()
	if err != nil {
		return nil, false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false
	}
	return data, true
}

// ReadText returns the contents of an entry decoded as text.
func (a *Archive) ReadText(path string) (string, bool) {
	data, ok := a.ReadBytes(path)
	if !ok {
		return "", false
	}
	return string(data), true
}

// normalizePath strips the leading "/" and "./" forms that occur across
// EPUB producers in the wild so that both resolve to the same entry.
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
