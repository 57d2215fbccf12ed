package blob

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// fileReader serves regions with positioned reads, so concurrent lookups
// share the descriptor without sharing a cursor.
type fileReader struct {
	f         *os.File
	size      uint64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// OpenFile opens path for positioned reads.
func OpenFile(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	return &fileReader{f: f, size: uint64(st.Size())}, nil
}

func (r *fileReader) ReadRegion(offset uint64, length uint32) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkRange(offset, length, r.size); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := r.f.ReadAt(buf, int64(offset))
	if n == len(buf) {
		// ReadAt may return io.EOF together with a full read at the end.
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read blob [%d, %d): %w", offset, offset+uint64(length), err)
}

func (r *fileReader) Size() uint64 {
	return r.size
}

func (r *fileReader) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.closeErr = r.f.Close()
	})
	return r.closeErr
}
