// Package atomicfile writes files by renaming a fully written temporary file into place.
package atomicfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// WriteFile calls fn to write the contents of the named file.
// Readers never observe a partially written file: the contents go to a temporary file
// in the same directory, which replaces name only if fn and all file operations succeed.
func WriteFile(name string, perm os.FileMode, fn func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = fn(bw); err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = f.Chmod(perm)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	return os.Rename(tmpName, name)
}

// WriteFileBytes atomically replaces the named file with data.
func WriteFileBytes(name string, data []byte, perm os.FileMode) error {
	return WriteFile(name, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
