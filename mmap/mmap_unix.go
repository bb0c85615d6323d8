//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func readFile(f *os.File, size int64) ([]byte, func() error, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, os.NewSyscallError("mmap", err)
	}
	return b, func() error {
		if err := unix.Munmap(b); err != nil {
			return os.NewSyscallError("munmap", err)
		}
		return nil
	}, nil
}
