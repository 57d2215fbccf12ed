// Package hstspreload reports whether a host is on the HSTS preload list.
//
// The dataset is a jump table plus a blob. The jump table has one layer per
// domain label counted from the top-level domain; each layer maps the CRC-8
// of a label to a blob region. A region holds leaf entries (full host names,
// optionally covering subdomains) and non-leaf entries (labels that continue
// to the next layer). A lookup reads at most four regions.
package hstspreload

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/starius/hstspreload/blob"
	"github.com/starius/hstspreload/crc8"
	"github.com/starius/hstspreload/entry"
	"github.com/starius/hstspreload/hostcache"
	"github.com/starius/hstspreload/jumptable"
)

// Checker answers preload queries against one immutable dataset. It is safe
// for concurrent use.
type Checker struct {
	table *jumptable.Table
	blob  blob.Reader
	tlds  map[string]struct{}
	cache *hostcache.Cache
	log   logrus.FieldLogger
}

// New returns a Checker over an already loaded dataset. The Checker owns r
// and closes it in Close.
func New(table *jumptable.Table, r blob.Reader, opts ...Option) *Checker {
	cfg := newConfig(opts)
	return &Checker{
		table: table,
		blob:  r,
		tlds:  tldSet(cfg.tlds),
		cache: cfg.cache,
		log:   cfg.log,
	}
}

// IsPreloaded reports whether host, or an ancestor whose rule includes
// subdomains, is preloaded. host must be ASCII; IDNA-encode Unicode names
// first (see ToASCII). Comparison is case-insensitive.
func (c *Checker) IsPreloaded(host string) (bool, error) {
	if verdict, ok := c.cache.Get(host); ok {
		return verdict, nil
	}
	verdict, err := c.lookup(host)
	if err != nil {
		return false, err
	}
	c.cache.Add(host, verdict)
	return verdict, nil
}

func (c *Checker) lookup(host string) (bool, error) {
	if host == "" {
		return false, ErrEmptyHost
	}
	lower := make([]byte, len(host))
	if !toLower(lower, host) {
		return false, fmt.Errorf("%w: %q", ErrNonASCII, host)
	}
	// FQDN form.
	if len(lower) > 1 && lower[len(lower)-1] == '.' {
		lower = lower[:len(lower)-1]
	}

	labels := bytes.Split(lower, []byte{'.'})

	// Fast-branch for gTLDs that are registered to preload all subdomains.
	if _, ok := c.tlds[string(labels[len(labels)-1])]; ok {
		return true, nil
	}

	for layer := 0; layer < len(labels); layer++ {
		// No layer is deeper than the jump table.
		if layer >= jumptable.Layers {
			return false, nil
		}
		label := labels[len(labels)-1-layer]

		region, ok := c.table.Lookup(layer, crc8.Checksum(label))
		if !ok {
			return false, nil
		}
		data, err := c.blob.ReadRegion(region.Offset, region.Length)
		if err != nil {
			return false, fmt.Errorf("layer %d: %w", layer, err)
		}

		descend := false
		d := entry.NewDecoder(data)
		for d.Next() {
			e := d.Entry()
			if e.Leaf {
				if bytes.Equal(e.Label, lower) {
					return true, nil
				}
				if e.IncludeSubdomains && isSubdomain(lower, e.Label) {
					return true, nil
				}
				continue
			}
			if bytes.Equal(e.Label, label) {
				descend = true
				break
			}
		}
		if err := d.Err(); err != nil {
			return false, fmt.Errorf("layer %d region [%d, %d): %w",
				layer, region.Offset, region.End(), err)
		}
		if !descend {
			return false, nil
		}
	}

	// Labels ran out inside a chain of non-leaf entries.
	return false, nil
}

// Close releases the blob. Lookups must not run concurrently with Close.
func (c *Checker) Close() error {
	c.log.WithField("blob_size", c.blob.Size()).Debug("hstspreload: closing dataset")
	return c.blob.Close()
}

// String returns a summary of the dataset.
func (c *Checker) String() string {
	return fmt.Sprintf("Checker{%v, tlds=%d, cached=%d}", c.table, len(c.tlds), c.cache.Len())
}

// isSubdomain reports whether host ends with "." + parent.
func isSubdomain(host, parent []byte) bool {
	if len(host) <= len(parent) {
		return false
	}
	return host[len(host)-len(parent)-1] == '.' && bytes.HasSuffix(host, parent)
}

// toLower writes the ASCII lower-case of s to dst and reports whether s is
// all ASCII.
func toLower(dst []byte, s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 {
			return false
		}
		if c >= 'A' && c <= 'Z' {
			c |= 0x20
		}
		dst[i] = c
	}
	return true
}
