package table

import (
	"errors"
	"fmt"
)

// StoredSentinel in the PhysicalEnd field marks a record as stored
// uncompressed.
const StoredSentinel uint32 = (1 << 32) - 1

// MaxVirtualEnd bounds the decompressed address space a record may claim.
// It is twice the cartridge size: decompressed images outgrow the raw image,
// so virtual offsets are not held to the raw image length.
const MaxVirtualEnd uint32 = 0x0400_0000

// RecordSize is the encoded size of one record on the cartridge.
const RecordSize = 16

// Record validation failures, reported inside a RecordError.
var (
	ErrVirtualRange  = errors.New("virtual range is inverted")
	ErrVirtualLimit  = errors.New("virtual range exceeds addressable image")
	ErrPhysicalRange = errors.New("physical range is inverted")
	ErrBeyondImage   = errors.New("physical range lies beyond the image")
)

// Record describes where one file lives on the cartridge and where its
// decompressed bytes belong.
type Record struct {
	VirtualStart  uint32
	VirtualEnd    uint32
	PhysicalStart uint32
	PhysicalEnd   uint32
}

// Storage is either Stored or Compressed.
type Storage interface {
	isStorage()
}

// Stored records are copied verbatim; their physical length is the virtual
// length.
type Stored struct{}

// Compressed records hold a codec stream in [PhysicalStart, End).
type Compressed struct {
	End uint32
}

func (Stored) isStorage()     {}
func (Compressed) isStorage() {}

// Storage classifies the record. Only StoredSentinel marks a stored file;
// tables using the retail zero marker go through Table.Retail first.
func (rec Record) Storage() Storage {
	if rec.PhysicalEnd == StoredSentinel {
		return Stored{}
	}
	return Compressed{End: rec.PhysicalEnd}
}

// retail maps the zero PhysicalEnd that retail cartridges use for stored
// files onto StoredSentinel.
func retail(rec Record) Record {
	if rec.PhysicalEnd == 0 && !rec.isTerminator() {
		rec.PhysicalEnd = StoredSentinel
	}
	return rec
}

// Size is the decompressed length of the record.
func (rec Record) Size() uint32 {
	if rec.VirtualEnd < rec.VirtualStart {
		return 0
	}
	return rec.VirtualEnd - rec.VirtualStart
}

func (rec Record) isTerminator() bool {
	return rec == Record{}
}

// Validate checks the record's ranges against an image of imageLen bytes.
func (rec Record) Validate(imageLen int) error {
	if rec.VirtualStart > rec.VirtualEnd {
		return fmt.Errorf("%w: %#08x > %#08x", ErrVirtualRange, rec.VirtualStart, rec.VirtualEnd)
	}
	if rec.VirtualEnd > MaxVirtualEnd {
		return fmt.Errorf("%w: %#08x", ErrVirtualLimit, rec.VirtualEnd)
	}

	limit := uint64(imageLen)
	if uint64(rec.PhysicalStart) > limit {
		return fmt.Errorf("%w: start %#08x", ErrBeyondImage, rec.PhysicalStart)
	}

	switch s := rec.Storage().(type) {
	case Stored:
	case Compressed:
		if rec.PhysicalStart > s.End {
			return fmt.Errorf("%w: %#08x > %#08x", ErrPhysicalRange, rec.PhysicalStart, s.End)
		}
		if uint64(s.End) > limit {
			return fmt.Errorf("%w: end %#08x", ErrBeyondImage, s.End)
		}
	}
	return nil
}

func (rec Record) String() string {
	switch rec.Storage().(type) {
	case Compressed:
		return fmt.Sprintf("Record(V[%#08x, %#08x) P[%#08x, %#08x))", rec.VirtualStart, rec.VirtualEnd, rec.PhysicalStart, rec.PhysicalEnd)
	}
	return fmt.Sprintf("Record(V[%#08x, %#08x) P[%#08x, stored))", rec.VirtualStart, rec.VirtualEnd, rec.PhysicalStart)
}

// RecordError ties a validation failure to the record's position in the
// table.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
