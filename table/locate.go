package table

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultScanLimit bounds SignatureScan when no limit is given.
const DefaultScanLimit = 0x20000

// Locator finds the file table inside a raw image.
type Locator interface {
	Locate(raw []byte) (Table, error)
}

// KnownLayouts holds the table offsets of well-known cartridge images.
var KnownLayouts = map[string]uint32{
	"oot-ntsc-1.0": 0x7430,
	"oot-debug":    0x12F70,
}

// FixedOffset reads the table at a known offset. Retail accepts the zero
// PhysicalEnd stored marker.
type FixedOffset struct {
	Offset uint32
	Retail bool
}

func (f FixedOffset) Locate(raw []byte) (Table, error) {
	tbl, err := Read(raw, f.Offset)
	if err != nil {
		return Table{}, err
	}
	if f.Retail {
		return tbl.Retail(), nil
	}
	return tbl, nil
}

func (f FixedOffset) String() string {
	return fmt.Sprintf("FixedOffset(%#x)", f.Offset)
}

// SignatureScan searches the start of the image for the table's first
// record. The first file always starts at virtual address 0 and is stored,
// and the file after it starts where it ends. Retail accepts the zero
// PhysicalEnd stored marker.
type SignatureScan struct {
	Limit  uint32
	Retail bool
}

func (s SignatureScan) Locate(raw []byte) (Table, error) {
	limit := uint64(s.Limit)
	if limit == 0 {
		limit = DefaultScanLimit
	}
	if limit > uint64(len(raw)) {
		limit = uint64(len(raw))
	}

	for off := uint64(0); off+2*RecordSize <= limit; off += RecordSize {
		if !isSignature(raw, off, s.Retail) {
			continue
		}
		tbl, err := Read(raw, uint32(off))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Table{}, err
		}
		if s.Retail {
			return tbl.Retail(), nil
		}
		return tbl, nil
	}

	return Table{}, ErrNotFound
}

func (s SignatureScan) String() string {
	return fmt.Sprintf("SignatureScan(%#x)", s.Limit)
}

func isSignature(raw []byte, off uint64, retailMarker bool) bool {
	first := decodeRecord(raw[off:])
	if retailMarker {
		first = retail(first)
	}
	if first.VirtualStart != 0 || first.VirtualEnd == 0 {
		return false
	}
	if _, ok := first.Storage().(Stored); !ok {
		return false
	}
	if first.Validate(len(raw)) != nil {
		return false
	}

	next := decodeRecord(raw[off+RecordSize:])
	return next.isTerminator() || next.VirtualStart == first.VirtualEnd
}

func decodeRecord(b []byte) Record {
	return Record{
		VirtualStart:  binary.BigEndian.Uint32(b[0:]),
		VirtualEnd:    binary.BigEndian.Uint32(b[4:]),
		PhysicalStart: binary.BigEndian.Uint32(b[8:]),
		PhysicalEnd:   binary.BigEndian.Uint32(b[12:]),
	}
}
