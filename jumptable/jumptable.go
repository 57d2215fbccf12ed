// Package jumptable holds the per-layer bucket index into the preload blob.
//
// Layer i is keyed by the checksum of the i-th label counted from the
// top-level domain. A slot is either absent or a region of the blob holding
// every entry of that layer whose label has the slot's checksum.
package jumptable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
)

const (
	Layers = 4
	Slots  = 256

	magicUint32 = 0x544A5348 // HSJT in little-endian bytes
	version     = 1
	headerBytes = 24
	recordBytes = 12
	indexBytes  = headerBytes + Layers*Slots*recordBytes
)

var (
	ErrBufferTooSmall  = errors.New("jump table buffer too small")
	ErrBadMagic        = errors.New("bad jump table magic")
	ErrBadVersion      = errors.New("unsupported jump table version")
	ErrBadLayer        = errors.New("layer out of range")
	ErrRegionOutOfBlob = errors.New("region outside of blob")
)

// Region addresses Length bytes of the blob starting at Offset.
type Region struct {
	Offset uint64
	Length uint32
}

// End returns the offset just past the region.
func (r Region) End() uint64 {
	return r.Offset + uint64(r.Length)
}

// Table is the immutable jump table of a dataset. The zero value has no
// regions and describes an empty blob.
type Table struct {
	layers      [Layers][Slots]Region
	blobSize    uint64
	fingerprint uint64
}

// New returns an empty table for a blob of the given size and fingerprint.
func New(blobSize, fingerprint uint64) *Table {
	return &Table{blobSize: blobSize, fingerprint: fingerprint}
}

// Lookup returns the region for checksum sum at layer. ok is false if the
// bucket is empty, which means no entry exists for that label at that layer.
func (t *Table) Lookup(layer int, sum uint8) (r Region, ok bool) {
	if t == nil || layer < 0 || layer >= Layers {
		return Region{}, false
	}
	r = t.layers[layer][sum]
	return r, r.Length != 0
}

// Set stores a region. Builders call it before the table is shared.
func (t *Table) Set(layer int, sum uint8, r Region) error {
	if layer < 0 || layer >= Layers {
		return fmt.Errorf("%w: %d", ErrBadLayer, layer)
	}
	if r.Offset > t.blobSize || uint64(r.Length) > t.blobSize-r.Offset {
		return fmt.Errorf("%w: [%d, %d) in blob of %d bytes",
			ErrRegionOutOfBlob, r.Offset, r.End(), t.blobSize)
	}
	t.layers[layer][sum] = r
	return nil
}

// BlobSize returns the size of the blob the table was built for.
func (t *Table) BlobSize() uint64 {
	return t.blobSize
}

// Fingerprint returns the xxh3 hash of the blob the table was built for.
func (t *Table) Fingerprint() uint64 {
	return t.fingerprint
}

// Serialize emits the companion index file:
// [4-byte magic] [2-byte version] [2 bytes reserved] [blob size u64]
// [blob fingerprint u64] [Layers*Slots records of offset u64, length u32]
func (t *Table) Serialize() []byte {
	buf := make([]byte, indexBytes)
	binary.LittleEndian.PutUint32(buf[0:], magicUint32)
	binary.LittleEndian.PutUint16(buf[4:], version)
	binary.LittleEndian.PutUint64(buf[8:], t.blobSize)
	binary.LittleEndian.PutUint64(buf[16:], t.fingerprint)
	at := headerBytes
	for layer := range t.layers {
		for _, r := range t.layers[layer] {
			binary.LittleEndian.PutUint64(buf[at:], r.Offset)
			binary.LittleEndian.PutUint32(buf[at+8:], r.Length)
			at += recordBytes
		}
	}
	return buf
}

// FromSerialized reconstructs a table from an index file.
func FromSerialized(buf []byte) (*Table, error) {
	if len(buf) < indexBytes {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrBufferTooSmall, len(buf), indexBytes)
	}
	if binary.LittleEndian.Uint32(buf[0:]) != magicUint32 {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(buf[4:]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	t := New(binary.LittleEndian.Uint64(buf[8:]), binary.LittleEndian.Uint64(buf[16:]))
	at := headerBytes
	for layer := 0; layer < Layers; layer++ {
		for sum := 0; sum < Slots; sum++ {
			r := Region{
				Offset: binary.LittleEndian.Uint64(buf[at:]),
				Length: binary.LittleEndian.Uint32(buf[at+8:]),
			}
			at += recordBytes
			if r.Length == 0 {
				continue
			}
			if err := t.Set(layer, uint8(sum), r); err != nil {
				return nil, fmt.Errorf("layer %d slot %d: %w", layer, sum, err)
			}
		}
	}
	return t, nil
}

// ReadFrom is FromSerialized over a reader.
func ReadFrom(r io.Reader) (*Table, error) {
	buf := make([]byte, indexBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrBufferTooSmall
		}
		return nil, err
	}
	return FromSerialized(buf)
}

// String returns a summary of bucket usage per layer.
func (t *Table) String() string {
	if t == nil {
		return "JumpTable{empty}"
	}
	var used [Layers]int
	var largest Region
	for layer := range t.layers {
		for _, r := range t.layers[layer] {
			if r.Length == 0 {
				continue
			}
			used[layer]++
			if r.Length > largest.Length {
				largest = r
			}
		}
	}
	return fmt.Sprintf("JumpTable{blob=%d, fingerprint=%016x, used=%v/%d, largest_region=%d}",
		t.blobSize, t.fingerprint, used, Slots, largest.Length)
}

// Fingerprint hashes a whole blob.
func Fingerprint(blob []byte) uint64 {
	return xxh3.Hash(blob)
}

// FingerprintReader hashes a blob streamed from r.
func FingerprintReader(r io.Reader) (uint64, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
