// Package table reads the file table of an N64 cartridge image.
//
// The table is a run of big-endian 16-byte records terminated by a record
// whose fields are all zero. Each record maps a file's physical, possibly
// compressed, bytes to its virtual range in the decompressed image.
package table

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// MaxRecords caps how many records are read before a table is considered
// unterminated.
const MaxRecords = 0x2000

// ErrNotFound is returned when no table can be located in the image.
var ErrNotFound = errors.New("file table not found")

// Table is an ordered, non-empty list of records and the physical offset it
// was read from.
type Table struct {
	Offset  uint32
	Records []Record
}

// Read parses the table starting at offset in raw. Reading stops at the
// terminator record; running off the image or past MaxRecords without one
// means there is no table at offset.
func Read(raw []byte, offset uint32) (Table, error) {
	if uint64(offset) >= uint64(len(raw)) {
		return Table{}, ErrNotFound
	}

	r := bytes.NewReader(raw[offset:])
	tbl := Table{Offset: offset}

	for len(tbl.Records) < MaxRecords {
		var rec Record
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Table{}, ErrNotFound
			}
			return Table{}, err
		}

		if rec.isTerminator() {
			if len(tbl.Records) == 0 {
				return Table{}, ErrNotFound
			}
			return tbl, nil
		}

		tbl.Records = append(tbl.Records, rec)
	}

	return Table{}, ErrNotFound
}

// Len is the encoded size of the table, excluding the terminator.
func (tbl Table) Len() int {
	return len(tbl.Records) * RecordSize
}

// Validate checks every record against an image of imageLen bytes and
// reports the first failure as a *RecordError.
func (tbl Table) Validate(imageLen int) error {
	if len(tbl.Records) == 0 {
		return ErrNotFound
	}
	for i, rec := range tbl.Records {
		if err := rec.Validate(imageLen); err != nil {
			return &RecordError{Index: i, Err: err}
		}
	}
	return nil
}

// VirtualSize is the largest VirtualEnd in the table.
func (tbl Table) VirtualSize() uint32 {
	var max uint32
	for _, rec := range tbl.Records {
		if rec.VirtualEnd > max {
			max = rec.VirtualEnd
		}
	}
	return max
}

// Retail returns a copy of the table in which records using the retail
// stored marker, a zero PhysicalEnd, carry StoredSentinel instead.
func (tbl Table) Retail() Table {
	recs := make([]Record, len(tbl.Records))
	for i, rec := range tbl.Records {
		recs[i] = retail(rec)
	}
	return Table{Offset: tbl.Offset, Records: recs}
}

// Encode writes the records in cartridge order, without a terminator.
func (tbl Table) Encode(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, tbl.Records)
}
