// Package archive reads recordings shipped as tar streams. Plain, gzip and
// xz compressed tarballs are supported.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

// ErrUnsupported is returned for paths without a known archive suffix.
var ErrUnsupported = errors.New("unsupported archive format")

var suffixes = []string{".tar", ".tar.gz", ".tgz", ".tar.xz", ".txz"}

// IsArchive reports whether path names a supported archive.
func IsArchive(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}

	return false
}

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader opens the archive at path, choosing the decompressor by suffix.
func NewReader(path string) (*Reader, error) {
	if !IsArchive(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var (
		reader       io.Reader = f
		decompressor io.Closer
	)

	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}

		reader = xzr
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}

		reader = gzr
		decompressor = gzr
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var errs []error

	if r.decompressor != nil {
		errs = append(errs, r.decompressor.Close())
	}

	errs = append(errs, r.file.Close())

	return errors.Join(errs...)
}

// Visitor is called for each regular file in the archive. Return true to
// stop iteration.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks the regular files of the archive in stream order.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}

		if stop {
			return nil
		}
	}
}

// Walk opens an archive and iterates through its files.
func Walk(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Iterate(visitor)
}

// Entry is a file read from an archive.
type Entry struct {
	Name string
	Data []byte
}

// ReadMatching returns the content of every file whose name matches, up to
// maxSize bytes each. Larger files fail the read.
func ReadMatching(path string, match func(name string) bool, maxSize int64) ([]Entry, error) {
	var out []Entry

	err := Walk(path, func(header *tar.Header, r io.Reader) (bool, error) {
		if !match(header.Name) {
			return false, nil
		}

		if maxSize > 0 && header.Size > maxSize {
			return false, fmt.Errorf("%s: %d bytes exceeds the %d byte limit", header.Name, header.Size, maxSize)
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return false, fmt.Errorf("read %s: %w", header.Name, err)
		}

		out = append(out, Entry{Name: header.Name, Data: data})

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
