//go:build unix

package blob

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// mmapReader serves regions as subslices of a read-only shared mapping.
type mmapReader struct {
	data      []byte
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// OpenMmap maps path read-only. The descriptor is closed once the mapping
// exists; Close unmaps.
func OpenMmap(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	size := st.Size()
	if size == 0 {
		// Zero-length mappings are rejected by the kernel.
		return &mmapReader{}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("blob of %d bytes does not fit in memory", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap blob: %w", err)
	}
	return &mmapReader{data: data}, nil
}

func (r *mmapReader) ReadRegion(offset uint64, length uint32) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkRange(offset, length, uint64(len(r.data))); err != nil {
		return nil, err
	}
	end := offset + uint64(length)
	return r.data[offset:end:end], nil
}

func (r *mmapReader) Size() uint64 {
	return uint64(len(r.data))
}

func (r *mmapReader) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		if r.data != nil {
			r.closeErr = unix.Munmap(r.data)
		}
	})
	return r.closeErr
}
