//go:build !unix

package mmap

import (
	"errors"
	"os"
)

type mmapUnsupportedError struct{}

func (mmapUnsupportedError) Error() string {
	return "mmap is not supported on this platform"
}

func (mmapUnsupportedError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

func readFile(_ *os.File, _ int64) ([]byte, func() error, error) {
	return nil, nil, mmapUnsupportedError{}
}
