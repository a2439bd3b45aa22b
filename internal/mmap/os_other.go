//go:build !unix && !windows

package mmap

import "errors"

// ErrUnsupported is returned on platforms without anonymous mappings.
var ErrUnsupported = errors.New("mmap: anonymous mappings are not supported on this platform")

func osMapAnon(int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

func osAdvise([]byte, AccessPattern) error {
	return nil
}
