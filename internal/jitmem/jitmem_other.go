//go:build !unix

package jitmem

import "errors"

var errUnsupported = errors.New("jitmem: executable memory is not supported on this platform")

func New(code []byte) (*Buffer, error) {
	if len(code) == 0 {
		return nil, ErrEmpty
	}
	return nil, errUnsupported
}

func (b *Buffer) Free() error { return nil }
