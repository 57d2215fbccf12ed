package hstspreload

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/starius/hstspreload/blob"
	"github.com/starius/hstspreload/jumptable"
)

// Open loads the jump table from indexPath and opens the blob at blobPath.
// The blob is memory-mapped unless WithFileReads is given; it is never read
// whole unless WithVerify is given.
func Open(blobPath, indexPath string, opts ...Option) (*Checker, error) {
	cfg := newConfig(opts)
	log := cfg.log.WithFields(logrus.Fields{
		"blob":  blobPath,
		"index": indexPath,
	})

	table, err := readTable(indexPath)
	if err != nil {
		return nil, err
	}

	var r blob.Reader
	if cfg.fileReads {
		r, err = blob.OpenFile(blobPath)
	} else {
		r, err = blob.OpenMmap(blobPath)
	}
	if err != nil {
		return nil, err
	}

	if err := checkBlob(table, r, cfg.verify); err != nil {
		r.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"blob_size":  r.Size(),
		"file_reads": cfg.fileReads,
		"verified":   cfg.verify,
	}).Debug("hstspreload: dataset opened")

	return New(table, r, opts...), nil
}

func readTable(indexPath string) (*jumptable.Table, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open jump table: %w", err)
	}
	defer f.Close()
	table, err := jumptable.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read jump table %s: %w", indexPath, err)
	}
	return table, nil
}

func checkBlob(table *jumptable.Table, r blob.Reader, verify bool) error {
	if r.Size() != table.BlobSize() {
		return fmt.Errorf("%w: blob has %d bytes, jump table expects %d",
			ErrBlobSize, r.Size(), table.BlobSize())
	}
	if !verify {
		return nil
	}
	sum, err := jumptable.FingerprintReader(&regionReader{r: r})
	if err != nil {
		return fmt.Errorf("hash blob: %w", err)
	}
	if sum != table.Fingerprint() {
		return fmt.Errorf("%w: %016x != %016x", ErrBlobChecksum, sum, table.Fingerprint())
	}
	return nil
}

// regionReader streams a blob.Reader in fixed-size chunks.
type regionReader struct {
	r   blob.Reader
	off uint64
}

const verifyChunk = 64 << 10

func (rr *regionReader) Read(p []byte) (int, error) {
	size := rr.r.Size()
	if rr.off >= size {
		return 0, io.EOF
	}
	n := min(uint64(len(p)), size-rr.off, verifyChunk)
	data, err := rr.r.ReadRegion(rr.off, uint32(n))
	if err != nil {
		return 0, err
	}
	copy(p, data)
	rr.off += n
	return int(n), nil
}
