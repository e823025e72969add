package n64rom

import (
	"errors"
	"fmt"

	"github.com/32bitkid/n64rom/decompression"
	"github.com/32bitkid/n64rom/table"
)

// Kind identifies which class of failure an Error belongs to.
type Kind uint8

// The closed set of failure kinds.
const (
	KindInputSize Kind = iota
	KindTableNotFound
	KindRecordCorrupt
	KindNumericOverflow
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInputSize:
		return "Kind(InputSize)"
	case KindTableNotFound:
		return "Kind(TableNotFound)"
	case KindRecordCorrupt:
		return "Kind(RecordCorrupt)"
	case KindNumericOverflow:
		return "Kind(NumericOverflow)"
	case KindIO:
		return "Kind(IO)"
	}
	return "Kind(UNKNOWN)"
}

// ErrOverlap is the cause reported when two records claim the same virtual
// addresses.
var ErrOverlap = errors.New("virtual ranges overlap")

// Error is the only error type returned by Decompress and DecompressFile.
// Name is set for KindInputSize and KindIO, Index for KindRecordCorrupt and
// for KindNumericOverflow raised while decoding a record (otherwise -1).
type Error struct {
	Kind  Kind
	Name  string
	Index int
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInputSize:
		return fmt.Sprintf("%s is not the correct size", e.Name)
	case KindTableNotFound:
		return "couldn't find table"
	case KindRecordCorrupt:
		return fmt.Sprintf("record %d is corrupt: %v", e.Index, e.Err)
	case KindNumericOverflow:
		if e.Index >= 0 {
			return fmt.Sprintf("record %d: %v", e.Index, e.Err)
		}
		return e.Err.Error()
	case KindIO:
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// recordError classifies a failure of the record at index.
func recordError(index int, err error) *Error {
	if errors.Is(err, decompression.ErrOverflow) {
		return &Error{Kind: KindNumericOverflow, Index: index, Err: err}
	}
	return &Error{Kind: KindRecordCorrupt, Index: index, Err: err}
}

// tableError classifies a failure to locate or validate the file table.
func tableError(err error) *Error {
	var re *table.RecordError
	switch {
	case errors.As(err, &re):
		return recordError(re.Index, re.Err)
	case errors.Is(err, table.ErrNotFound):
		return &Error{Kind: KindTableNotFound, Index: -1, Err: err}
	case errors.Is(err, decompression.ErrOverflow):
		return &Error{Kind: KindNumericOverflow, Index: -1, Err: err}
	}
	return &Error{Kind: KindTableNotFound, Index: -1, Err: err}
}
