package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

type testFile struct {
	name string
	body string
}

var testFiles = []testFile{
	{"session/take1.wav", "RIFF one"},
	{"session/notes.txt", "not audio"},
	{"session/take2.WAV", "RIFF two"},
}

func writeTar(t *testing.T, w io.Writer, files []testFile) {
	t.Helper()

	tw := tar.NewWriter(w)

	if err := tw.WriteHeader(&tar.Header{Name: "session/", Mode: 0o755, Typeflag: tar.TypeDir}); err != nil {
		t.Fatalf("write header: %v", err)
	}

	for _, f := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name:     f.name,
			Mode:     0o644,
			Size:     int64(len(f.body)),
			Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatalf("write header: %v", err)
		}

		if _, err := tw.Write([]byte(f.body)); err != nil {
			t.Fatalf("write content: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
}

func createArchive(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		gw := gzip.NewWriter(f)
		writeTar(t, gw, testFiles)

		if err := gw.Close(); err != nil {
			t.Fatal(err)
		}
	case strings.HasSuffix(name, ".tar.xz"):
		xw, err := xz.NewWriter(f)
		if err != nil {
			t.Fatalf("xz writer: %v", err)
		}

		writeTar(t, xw, testFiles)

		if err := xw.Close(); err != nil {
			t.Fatal(err)
		}
	default:
		writeTar(t, f, testFiles)
	}

	return path
}

func isWav(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".wav")
}

func TestReadMatching(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"rec.tar", "rec.tar.gz", "rec.tar.xz"} {
		t.Run(name, func(t *testing.T) {
			path := createArchive(t, dir, name)

			entries, err := ReadMatching(path, isWav, 0)
			if err != nil {
				t.Fatalf("read: %v", err)
			}

			if len(entries) != 2 {
				t.Fatalf("got %d entries, want 2", len(entries))
			}

			if entries[0].Name != "session/take1.wav" || string(entries[0].Data) != "RIFF one" {
				t.Errorf("unexpected first entry: %+v", entries[0])
			}

			if entries[1].Name != "session/take2.WAV" || string(entries[1].Data) != "RIFF two" {
				t.Errorf("unexpected second entry: %+v", entries[1])
			}
		})
	}
}

func TestReadMatchingSizeLimit(t *testing.T) {
	path := createArchive(t, t.TempDir(), "rec.tar")

	_, err := ReadMatching(path, isWav, 4)
	if err == nil || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestIterateStops(t *testing.T) {
	path := createArchive(t, t.TempDir(), "rec.tar.gz")

	var seen []string

	err := Walk(path, func(header *tar.Header, _ io.Reader) (bool, error) {
		seen = append(seen, header.Name)
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(seen) != 1 || seen[0] != "session/take1.wav" {
		t.Fatalf("seen=%v", seen)
	}
}

func TestNewReaderErrors(t *testing.T) {
	if _, err := NewReader("take.zip"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.tar")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected error: %v", err)
	}

	bogus := filepath.Join(t.TempDir(), "bogus.tar.xz")
	if err := os.WriteFile(bogus, []byte("not xz"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewReader(bogus); err == nil {
		t.Fatal("expected xz header error")
	}
}

func TestIsArchive(t *testing.T) {
	for path, want := range map[string]bool{
		"a.tar":    true,
		"a.TAR.GZ": true,
		"a.tgz":    true,
		"a.tar.xz": true,
		"a.wav":    false,
		"a.gz":     false,
	} {
		if got := IsArchive(path); got != want {
			t.Errorf("IsArchive(%q)=%t, want %t", path, got, want)
		}
	}
}
