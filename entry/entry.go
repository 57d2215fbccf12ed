// Package entry encodes and decodes the records stored in a blob region.
//
// A region is a concatenation of records:
//
//	flags (1 byte) | label length n (1 byte) | label (n bytes)
//
// Bit 7 of flags marks a leaf (a preload rule), bit 6 marks a leaf whose rule
// covers all subdomains. A leaf label is a full host name, a non-leaf label is
// a single domain label permitting descent to the next layer.
package entry

import (
	"errors"
	"fmt"
)

const (
	LeafFlag              = 0x80
	IncludeSubdomainsFlag = 0x40

	// MaxLabelLen is the longest label a record can carry.
	MaxLabelLen = 255
)

var (
	ErrTruncated    = errors.New("truncated entry")
	ErrLabelTooLong = errors.New("label too long")
)

// Entry is one decoded record. Label aliases the decoded buffer.
type Entry struct {
	Leaf              bool
	IncludeSubdomains bool
	Label             []byte
}

func (e Entry) String() string {
	switch {
	case e.Leaf && e.IncludeSubdomains:
		return fmt.Sprintf("leaf(%s, include_subdomains)", e.Label)
	case e.Leaf:
		return fmt.Sprintf("leaf(%s)", e.Label)
	default:
		return fmt.Sprintf("node(%s)", e.Label)
	}
}

// Decoder walks the records of one region in stored order. It is used like
// bufio.Scanner: call Next until it returns false, then check Err.
type Decoder struct {
	buf []byte
	off int
	cur Entry
	err error
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Next advances to the following record. It returns false at the end of the
// buffer or on a malformed record.
func (d *Decoder) Next() bool {
	if d.err != nil || d.off >= len(d.buf) {
		return false
	}
	rest := d.buf[d.off:]
	if len(rest) < 2 {
		d.err = fmt.Errorf("%w: header at offset %d", ErrTruncated, d.off)
		return false
	}
	flags, n := rest[0], int(rest[1])
	if len(rest) < 2+n {
		d.err = fmt.Errorf("%w: label of %d bytes at offset %d, %d available",
			ErrTruncated, n, d.off, len(rest)-2)
		return false
	}
	leaf := flags&LeafFlag != 0
	d.cur = Entry{
		Leaf:              leaf,
		IncludeSubdomains: leaf && flags&IncludeSubdomainsFlag != 0,
		Label:             rest[2 : 2+n : 2+n],
	}
	d.off += 2 + n
	return true
}

// Entry returns the record produced by the last successful Next.
func (d *Decoder) Entry() Entry {
	return d.cur
}

func (d *Decoder) Err() error {
	return d.err
}

// Decode returns all records of buf.
func Decode(buf []byte) ([]Entry, error) {
	var out []Entry
	d := NewDecoder(buf)
	for d.Next() {
		out = append(out, d.Entry())
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Append appends the encoding of e to dst.
func Append(dst []byte, e Entry) ([]byte, error) {
	if len(e.Label) > MaxLabelLen {
		return dst, fmt.Errorf("%w: %d bytes", ErrLabelTooLong, len(e.Label))
	}
	var flags byte
	if e.Leaf {
		flags |= LeafFlag
		if e.IncludeSubdomains {
			flags |= IncludeSubdomainsFlag
		}
	}
	dst = append(dst, flags, byte(len(e.Label)))
	return append(dst, e.Label...), nil
}

// Encode encodes entries into a single region.
func Encode(entries []Entry) ([]byte, error) {
	size := 0
	for _, e := range entries {
		size += 2 + len(e.Label)
	}
	buf := make([]byte, 0, size)
	for _, e := range entries {
		var err error
		buf, err = Append(buf, e)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}
