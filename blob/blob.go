// Package blob provides read-only random access to the preload blob.
//
// All readers are safe for concurrent use. Bytes returned by ReadRegion may
// alias the backing storage and must not be modified or retained after
// Close.
package blob

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrOutOfRange = errors.New("blob range out of bounds")
	ErrClosed     = errors.New("blob reader is closed")
)

// Reader returns byte ranges of the blob.
type Reader interface {
	// ReadRegion returns exactly length bytes starting at offset.
	ReadRegion(offset uint64, length uint32) ([]byte, error)

	// Size returns the blob size in bytes.
	Size() uint64

	// Close releases the backing storage. It is safe to call more than once.
	Close() error
}

func checkRange(offset uint64, length uint32, size uint64) error {
	if offset > size || uint64(length) > size-offset {
		return fmt.Errorf("%w: [%d, %d) in blob of %d bytes",
			ErrOutOfRange, offset, offset+uint64(length), size)
	}
	return nil
}

// bytesReader serves regions as subslices of an in-memory blob.
type bytesReader struct {
	data   []byte
	closed atomic.Bool
}

// FromBytes returns a Reader over data. data must not be modified afterwards.
func FromBytes(data []byte) Reader {
	return &bytesReader{data: data}
}

func (r *bytesReader) ReadRegion(offset uint64, length uint32) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkRange(offset, length, uint64(len(r.data))); err != nil {
		return nil, err
	}
	end := offset + uint64(length)
	return r.data[offset:end:end], nil
}

func (r *bytesReader) Size() uint64 {
	return uint64(len(r.data))
}

func (r *bytesReader) Close() error {
	r.closed.Store(true)
	return nil
}
