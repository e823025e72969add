package decompression

import (
	"encoding/binary"
	"fmt"
	"github.com/32bitkid/bitreader"
	"io"
)

var yaz0Magic = [4]byte{'Y', 'a', 'z', '0'}

type yaz0Header struct {
	Magic [4]byte
	Size  uint32
	_     [8]byte
}

// Long runs store length-0x12 in a trailing byte.
const yaz0LongRun = 0x12

func DecompressYaz0(r io.Reader, dst []byte) error {
	var header yaz0Header
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrTruncated, err)
	}

	if header.Magic != yaz0Magic {
		return fmt.Errorf("%w: got %q", ErrBadMagic, header.Magic[:])
	}

	size, err := CheckedInt(uint64(header.Size))
	if err != nil {
		return err
	}
	if size != len(dst) {
		return fmt.Errorf("%w: expected(%d) != actual(%d)", ErrSizeMismatch, len(dst), size)
	}

	return yaz0(dst, r)
}

func yaz0(dst []byte, r io.Reader) error {
	br := bitreader.NewReader(r)

	var (
		pos     int
		control uint8
		bits    uint
	)

	truncated := func(err error) error {
		return fmt.Errorf("%w: expected(%d) != actual(%d): %v", ErrTruncated, len(dst), pos, err)
	}

	for pos < len(dst) {
		if bits == 0 {
			c, err := br.Read8(8)
			if err != nil {
				return truncated(err)
			}
			control, bits = c, 8
		}

		literal := control&0x80 != 0
		control <<= 1
		bits--

		if literal {
			b, err := br.Read8(8)
			if err != nil {
				return truncated(err)
			}
			dst[pos] = b
			pos++
			continue
		}

		n, err := br.Read8(4)
		if err != nil {
			return truncated(err)
		}
		d, err := br.Read16(12)
		if err != nil {
			return truncated(err)
		}

		length := int(n) + 2
		if n == 0 {
			ext, err := br.Read8(8)
			if err != nil {
				return truncated(err)
			}
			length = int(ext) + yaz0LongRun
		}

		distance := int(d) + 1
		if distance > pos {
			return fmt.Errorf("%w: distance %d at offset %d", ErrBadReference, distance, pos)
		}
		if length > len(dst)-pos {
			return fmt.Errorf("%w: %d bytes at offset %d of %d", ErrOverrun, length, pos, len(dst))
		}

		// source and destination overlap when distance < length, so the
		// copy must advance one byte at a time
		src := pos - distance
		for i := 0; i < length; i++ {
			dst[pos] = dst[src+i]
			pos++
		}
	}

	return nil
}
