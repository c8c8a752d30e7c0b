package npz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Entry is one named array of an archive.
type Entry struct {
	Name  string
	Array Array
}

// Write stores entries as a deflate-compressed .npz archive at path. The
// archive is assembled in a temporary file and renamed into place, so a
// failed write never leaves a readable archive behind.
func Write(path string, entries []Entry) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   e.Name + ".npy",
			Method: zip.Deflate,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
		if err := writeNPY(w, e.Array); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads every array of an .npz archive in stored order.
func Load(path string) ([]Entry, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		a, err := readNPY(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		entries = append(entries, Entry{Name: strings.TrimSuffix(f.Name, ".npy"), Array: a})
	}
	return entries, nil
}
