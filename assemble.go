package n64rom

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/32bitkid/n64rom/decompression"
	"github.com/32bitkid/n64rom/table"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func assemble(raw []byte, tbl table.Table, opts Options) ([]byte, error) {
	size, err := decompression.CheckedInt(uint64(tbl.VirtualSize()))
	if err != nil {
		return nil, &Error{Kind: KindNumericOverflow, Index: -1, Err: err}
	}

	if err := checkOverlaps(tbl); err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if opts.Fill != 0 {
		for i := range out {
			out[i] = opts.Fill
		}
	}

	if err := decodeAll(raw, tbl, out, opts.Workers); err != nil {
		return nil, err
	}

	opts.Log.WithFields(logrus.Fields{
		"records": len(tbl.Records),
		"size":    fmt.Sprintf("%#x", size),
	}).Debugf("%s: decompressed", opts.Name)

	if opts.RewriteTable {
		rewriteTable(out, tbl, opts.Log)
	}

	return out, nil
}

// checkOverlaps rejects tables where two non-empty records share virtual
// addresses. The later record in table order is reported.
func checkOverlaps(tbl table.Table) error {
	recs := tbl.Records

	order := make([]int, len(recs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return recs[order[a]].VirtualStart < recs[order[b]].VirtualStart
	})

	// furthest reaching record seen so far
	reach := -1
	for _, i := range order {
		rec := recs[i]
		if rec.Size() == 0 {
			continue
		}

		if reach >= 0 && rec.VirtualStart < recs[reach].VirtualEnd {
			index, other := i, reach
			if index < other {
				index, other = other, index
			}
			return &Error{
				Kind:  KindRecordCorrupt,
				Index: index,
				Err:   fmt.Errorf("%w: %v and record %d %v", ErrOverlap, recs[index], other, recs[other]),
			}
		}

		if reach < 0 || rec.VirtualEnd > recs[reach].VirtualEnd {
			reach = i
		}
	}

	return nil
}

// decodeAll decompresses every record into its own slice of out. A record
// is skipped only once a record before it has failed, so the error reported
// is always the lowest failing index.
func decodeAll(raw []byte, tbl table.Table, out []byte, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	errs := make([]error, len(tbl.Records))

	// lowest failing index so far, len(errs) while nothing has failed
	var lowest atomic.Int64
	lowest.Store(int64(len(errs)))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, rec := range tbl.Records {
		if int64(i) > lowest.Load() {
			break
		}

		i, rec := i, rec
		g.Go(func() error {
			if int64(i) > lowest.Load() {
				return nil
			}
			dst := out[rec.VirtualStart:rec.VirtualEnd]
			if err := decompression.Segment(raw, rec, dst); err != nil {
				errs[i] = err
				for {
					cur := lowest.Load()
					if int64(i) >= cur || lowest.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
				return err
			}
			return nil
		})
	}

	if g.Wait() == nil {
		return nil
	}

	for i, err := range errs {
		if err != nil {
			return recordError(i, err)
		}
	}
	return nil
}

// rewriteTable overwrites the copy of the file table inside out so that
// every record reads as stored at its virtual address.
func rewriteTable(out []byte, tbl table.Table, log logrus.FieldLogger) {
	host, ok := tableHost(tbl)
	if !ok {
		log.Debugf("file table at %#x is not inside a stored file, leaving it unchanged", tbl.Offset)
		return
	}

	at := uint64(host.VirtualStart) + uint64(tbl.Offset-host.PhysicalStart)

	rewritten := table.Table{
		Offset:  uint32(at),
		Records: make([]table.Record, len(tbl.Records)),
	}
	for i, rec := range tbl.Records {
		rewritten.Records[i] = table.Record{
			VirtualStart:  rec.VirtualStart,
			VirtualEnd:    rec.VirtualEnd,
			PhysicalStart: rec.VirtualStart,
			PhysicalEnd:   table.StoredSentinel,
		}
	}

	var buf bytes.Buffer
	if err := rewritten.Encode(&buf); err != nil {
		log.Debugf("file table rewrite failed: %v", err)
		return
	}
	copy(out[at:], buf.Bytes())

	log.Debugf("file table rewritten at %#x", at)
}

// tableHost finds the stored record whose bytes contain the table.
func tableHost(tbl table.Table) (table.Record, bool) {
	start := uint64(tbl.Offset)
	end := start + uint64(tbl.Len())

	for _, rec := range tbl.Records {
		if _, ok := rec.Storage().(table.Stored); !ok {
			continue
		}
		if uint64(rec.PhysicalStart) <= start && end <= uint64(rec.PhysicalStart)+uint64(rec.Size()) {
			return rec, true
		}
	}
	return table.Record{}, false
}
