// Package decompression decodes the individual files of a cartridge image.
package decompression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/32bitkid/n64rom/table"
)

// Method selects the decompressor for a record.
type Method uint8

// Methods known to Decompressors.
const (
	MethodStored Method = iota
	MethodYaz0
)

func (m Method) String() string {
	switch m {
	case MethodStored:
		return "Method(Stored)"
	case MethodYaz0:
		return "Method(Yaz0)"
	}
	return "Method(UNKNOWN)"
}

// Segment and codec failures. All of them mean the record is corrupt except
// ErrOverflow.
var (
	ErrOutOfBounds  = errors.New("read beyond end of image")
	ErrBadMagic     = errors.New("missing Yaz0 magic")
	ErrSizeMismatch = errors.New("declared size does not match record")
	ErrTruncated    = errors.New("compressed stream truncated")
	ErrBadReference = errors.New("back-reference before start of output")
	ErrOverrun      = errors.New("back-reference runs past declared size")
	ErrOverflow     = errors.New("integer overflow")
)

// DecompressionFn fills dst with exactly len(dst) decompressed bytes read
// from r.
type DecompressionFn = func(r io.Reader, dst []byte) error

type LUT map[Method]DecompressionFn

var Decompressors = LUT{
	MethodStored: DecompressStored,
	MethodYaz0:   DecompressYaz0,
}

func DecompressStored(r io.Reader, dst []byte) error {
	if _, err := io.ReadFull(r, dst); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: wanted %d bytes", ErrOutOfBounds, len(dst))
		}
		return err
	}
	return nil
}

// Segment decodes rec from raw into dst using the default decompressors.
func Segment(raw []byte, rec table.Record, dst []byte) error {
	return Decompressors.Segment(raw, rec, dst)
}

// Segment decodes rec from raw into dst, which must be exactly rec.Size()
// bytes long.
func (lut LUT) Segment(raw []byte, rec table.Record, dst []byte) error {
	size, err := CheckedInt(uint64(rec.Size()))
	if err != nil {
		return err
	}
	if len(dst) != size {
		return fmt.Errorf("destination holds %d bytes, record needs %d", len(dst), size)
	}
	if size == 0 {
		return nil
	}

	start, err := CheckedInt(uint64(rec.PhysicalStart))
	if err != nil {
		return err
	}

	var (
		method Method
		end    int
	)
	switch s := rec.Storage().(type) {
	case table.Stored:
		method = MethodStored
		end, err = CheckedInt(uint64(rec.PhysicalStart) + uint64(rec.Size()))
	case table.Compressed:
		method = MethodYaz0
		end, err = CheckedInt(uint64(s.End))
	default:
		return fmt.Errorf("unhandled storage: %T", s)
	}
	if err != nil {
		return err
	}
	if start > end || end > len(raw) {
		return fmt.Errorf("%w: [%#x, %#x) in %#x bytes", ErrOutOfBounds, start, end, len(raw))
	}

	decompressor, ok := lut[method]
	if !ok {
		return fmt.Errorf("unhandled compression method: %v", method)
	}
	return decompressor(bytes.NewReader(raw[start:end]), dst)
}

const maxInt = int(^uint(0) >> 1)

// CheckedInt converts v to an int, failing with ErrOverflow rather than
// wrapping.
func CheckedInt(v uint64) (int, error) {
	if v > uint64(maxInt) {
		return 0, fmt.Errorf("%w: %d does not fit in int", ErrOverflow, v)
	}
	return int(v), nil
}
