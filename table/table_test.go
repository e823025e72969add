package table

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putRecords(raw []byte, offset uint32, recs ...Record) {
	var buf bytes.Buffer
	if err := (Table{Records: recs}).Encode(&buf); err != nil {
		panic(err)
	}
	copy(raw[offset:], buf.Bytes())
}

func TestRead(t *testing.T) {
	raw := make([]byte, 0x1000)
	recs := []Record{
		{0x0000, 0x1060, 0x0000, 0x0000},
		{0x1060, 0x7430, 0x1060, 0x0000},
		{0x7430, 0xd390, 0x7430, 0x9000},
	}
	putRecords(raw, 0x100, recs...)

	tbl, err := Read(raw, 0x100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100), tbl.Offset)
	assert.Equal(t, recs, tbl.Records)
	assert.Equal(t, 3*RecordSize, tbl.Len())
	assert.Equal(t, uint32(0xd390), tbl.VirtualSize())
}

func TestReadNotFound(t *testing.T) {
	raw := make([]byte, 0x40)

	cases := []struct {
		name   string
		offset uint32
		setup  func([]byte)
	}{
		{"empty table", 0, func([]byte) {}},
		{"offset past image", 0x40, func([]byte) {}},
		{"unterminated", 0x20, func(raw []byte) {
			putRecords(raw, 0x20, Record{0, 0x10, 0x10, StoredSentinel}, Record{0x10, 0x20, 0x20, StoredSentinel})
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := append([]byte(nil), raw...)
			c.setup(buf)
			_, err := Read(buf, c.offset)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestReadMaxRecords(t *testing.T) {
	raw := make([]byte, (MaxRecords+2)*RecordSize)
	for i := 0; i < MaxRecords+1; i++ {
		putRecords(raw, uint32(i*RecordSize), Record{uint32(i), uint32(i + 1), 0, StoredSentinel})
	}

	_, err := Read(raw, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage(t *testing.T) {
	assert.Equal(t, Stored{}, Record{PhysicalEnd: StoredSentinel}.Storage())
	assert.Equal(t, Compressed{End: 0}, Record{PhysicalStart: 0x1000, PhysicalEnd: 0}.Storage())
	assert.Equal(t, Compressed{End: 0x2000}, Record{PhysicalStart: 0x1000, PhysicalEnd: 0x2000}.Storage())
}

func TestTableRetail(t *testing.T) {
	tbl := Table{Offset: 0x40, Records: []Record{
		{0, 0x10, 0x1000, 0},
		{0x10, 0x20, 0x2000, 0x2010},
	}}

	retailTbl := tbl.Retail()
	assert.Equal(t, uint32(0x40), retailTbl.Offset)
	assert.Equal(t, []Record{{0, 0x10, 0x1000, StoredSentinel}, {0x10, 0x20, 0x2000, 0x2010}}, retailTbl.Records)
	// the original records are left alone
	assert.Equal(t, uint32(0), tbl.Records[0].PhysicalEnd)
}

func TestRecordValidate(t *testing.T) {
	const imageLen = 0x1000

	cases := []struct {
		name string
		rec  Record
		err  error
	}{
		{"stored", Record{0, 0x10, 0x800, StoredSentinel}, nil},
		{"empty", Record{0x10, 0x10, 0x800, 0x800}, nil},
		{"compressed", Record{0, 0x100, 0x800, 0x900}, nil},
		{"compressed to end", Record{0, 0x100, 0x800, imageLen}, nil},
		{"inverted virtual", Record{0x20, 0x10, 0x800, StoredSentinel}, ErrVirtualRange},
		{"virtual limit", Record{0, MaxVirtualEnd + 1, 0x800, StoredSentinel}, ErrVirtualLimit},
		{"inverted physical", Record{0, 0x10, 0x900, 0x800}, ErrPhysicalRange},
		{"zero physical end", Record{0, 0x10, 0x1000 - 0x800, 0}, ErrPhysicalRange},
		{"stored past image", Record{0, 0x10, imageLen + 1, StoredSentinel}, ErrBeyondImage},
		{"compressed past image", Record{0, 0x10, 0x800, imageLen + 1}, ErrBeyondImage},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.rec.Validate(imageLen)
			if c.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, c.err)
		})
	}
}

func TestTableValidate(t *testing.T) {
	tbl := Table{Records: []Record{
		{0, 0x10, 0x800, StoredSentinel},
		{0x10, 0x20, 0x810, StoredSentinel},
		{0x30, 0x20, 0x820, StoredSentinel},
	}}

	err := tbl.Validate(0x1000)
	var re *RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 2, re.Index)
	assert.ErrorIs(t, err, ErrVirtualRange)

	assert.ErrorIs(t, Table{}.Validate(0x1000), ErrNotFound)
}

func TestRecordString(t *testing.T) {
	assert.Equal(t, "Record(V[0x00000010, 0x00000020) P[0x00000800, stored))", Record{0x10, 0x20, 0x800, StoredSentinel}.String())
	assert.Equal(t, "Record(V[0x00000010, 0x00000020) P[0x00000800, 0x00000810))", Record{0x10, 0x20, 0x800, 0x810}.String())
}
