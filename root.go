// Package n64rom decompresses N64 cartridge images.
//
// A cartridge image is a fixed 32 MiB dump whose contents are described by a
// file table. Each record in the table points at a file that is either
// stored verbatim or compressed with Yaz0, and says where the file's bytes
// belong once decompressed. Decompress walks the table, decodes every file
// and lays them out into one contiguous image addressed by virtual offset.

package n64rom

import (
	"fmt"
	"os"

	"github.com/32bitkid/n64rom/table"
	"github.com/sirupsen/logrus"
)

// ImageSize is the only accepted length of a raw cartridge image.
const ImageSize = 0x0200_0000

// Options tune Decompress. The zero value of every field selects the
// default.
type Options struct {
	// Name identifies the input in size errors.
	Name string
	// Locator finds the file table; defaults to a bounded SignatureScan.
	Locator table.Locator
	// Workers bounds how many records are decoded at once; defaults to
	// GOMAXPROCS.
	Workers int
	// Fill is written to regions no record covers.
	Fill byte
	// RewriteTable updates the table copied into the output so it describes
	// the decompressed layout.
	RewriteTable bool
	Log          logrus.FieldLogger
}

func mergeOptions(options []Options) Options {
	opts := Options{
		Name:    "input",
		Locator: table.SignatureScan{},
		Log:     logrus.StandardLogger(),
	}
	for _, o := range options {
		if o.Name != "" {
			opts.Name = o.Name
		}
		if o.Locator != nil {
			opts.Locator = o.Locator
		}
		if o.Workers > 0 {
			opts.Workers = o.Workers
		}
		if o.Fill != 0 {
			opts.Fill = o.Fill
		}
		if o.RewriteTable {
			opts.RewriteTable = true
		}
		if o.Log != nil {
			opts.Log = o.Log
		}
	}
	return opts
}

// Decompress turns a raw cartridge image into its decompressed image. raw
// is not modified. Every failure is an *Error.
func Decompress(raw []byte, options ...Options) ([]byte, error) {
	opts := mergeOptions(options)

	if len(raw) != ImageSize {
		return nil, &Error{Kind: KindInputSize, Name: opts.Name, Index: -1}
	}

	tbl, err := opts.Locator.Locate(raw)
	if err != nil {
		return nil, tableError(err)
	}
	if err := tbl.Validate(len(raw)); err != nil {
		return nil, tableError(err)
	}

	opts.Log.WithFields(logrus.Fields{
		"offset":  fmt.Sprintf("%#x", tbl.Offset),
		"records": len(tbl.Records),
	}).Debugf("%s: found file table", opts.Name)

	return assemble(raw, tbl, opts)
}

// DecompressFile reads the image at in, decompresses it and writes the result
// to out. I/O failures are reported with the offending path.
func DecompressFile(in, out string, options ...Options) error {
	raw, err := os.ReadFile(in)
	if err != nil {
		return &Error{Kind: KindIO, Name: in, Index: -1, Err: err}
	}

	options = append([]Options{{Name: in}}, options...)
	image, err := Decompress(raw, options...)
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, image, 0644); err != nil {
		return &Error{Kind: KindIO, Name: out, Index: -1, Err: err}
	}
	return nil
}
