package decompression

import (
	"bytes"
	"encoding/binary"
)

const (
	yaz0Window = 0x1000
	yaz0MaxRun = 0xff + yaz0LongRun
)

// encodeYaz0 is a greedy reference encoder used to produce round-trip
// fixtures. Matches may run into the bytes they produce.
func encodeYaz0(src []byte) []byte {
	var out bytes.Buffer
	out.Write(yaz0Magic[:])
	binary.Write(&out, binary.BigEndian, uint32(len(src)))
	out.Write(make([]byte, 8))

	var (
		control byte
		count   int
		group   []byte
	)
	flush := func() {
		out.WriteByte(control)
		out.Write(group)
		control, count, group = 0, 0, group[:0]
	}

	for pos := 0; pos < len(src); {
		distance, length := longestMatch(src, pos)
		if length >= 3 {
			d := distance - 1
			if length >= yaz0LongRun {
				group = append(group, byte(d>>8), byte(d), byte(length-yaz0LongRun))
			} else {
				group = append(group, byte((length-2)<<4|d>>8), byte(d))
			}
			pos += length
		} else {
			control |= 0x80 >> uint(count)
			group = append(group, src[pos])
			pos++
		}

		count++
		if count == 8 {
			flush()
		}
	}
	if count > 0 {
		flush()
	}

	return out.Bytes()
}

func longestMatch(src []byte, pos int) (distance, length int) {
	start := pos - yaz0Window
	if start < 0 {
		start = 0
	}
	for j := start; j < pos; j++ {
		n := 0
		for n < yaz0MaxRun && pos+n < len(src) && src[j+n] == src[pos+n] {
			n++
		}
		if n > length {
			distance, length = pos-j, n
		}
	}
	return distance, length
}

// yaz0Stream wraps a hand-written token stream in a header declaring size.
func yaz0Stream(size uint32, tokens ...byte) []byte {
	var out bytes.Buffer
	out.Write(yaz0Magic[:])
	binary.Write(&out, binary.BigEndian, size)
	out.Write(make([]byte, 8))
	out.Write(tokens)
	return out.Bytes()
}
