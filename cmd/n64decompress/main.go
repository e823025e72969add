package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/32bitkid/n64rom"
	"github.com/32bitkid/n64rom/table"
	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	fixed := flag.Uint("fixed", 0, "Read the file table at this offset instead of scanning for it")
	layout := flag.String("layout", "", "Read the file table at the offset of a known layout (oot-ntsc-1.0, oot-debug)")
	retail := flag.Bool("retail", false, "Accept a zero physical end as the stored marker, as retail cartridges use")
	limit := flag.Uint("scan-limit", table.DefaultScanLimit, "How far into the image to scan for the file table")
	rewrite := flag.Bool("rewrite-table", false, "Rewrite the file table in the output to describe the decompressed layout")
	workers := flag.Int("workers", 0, "Number of files to decompress at once (default GOMAXPROCS)")
	fill := flag.Uint("fill", 0, "Byte written to regions no file covers")
	digest := flag.Bool("digest", false, "Print the xxhash digest of the input and output images")

	flag.Parse()
	args := flag.Args()

	if len(args) != 2 || *fill > 0xff {
		fmt.Fprintln(os.Stderr, "Usage: n64decompress [options] input output")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	var locator table.Locator = table.SignatureScan{Limit: uint32(*limit), Retail: *retail}
	switch {
	case *layout != "":
		offset, ok := table.KnownLayouts[*layout]
		if !ok {
			log.Fatalf("unknown layout %q", *layout)
		}
		// known layouts are retail dumps
		locator = table.FixedOffset{Offset: offset, Retail: true}
	case *fixed != 0:
		locator = table.FixedOffset{Offset: uint32(*fixed), Retail: *retail}
	}
	log.Debugf("locating file table with %v", locator)

	in, out := args[0], args[1]
	opts := n64rom.Options{
		Locator:      locator,
		Workers:      *workers,
		Fill:         byte(*fill),
		RewriteTable: *rewrite,
		Log:          log.StandardLogger(),
	}

	if err := n64rom.DecompressFile(in, out, opts); err != nil {
		var romErr *n64rom.Error
		if errors.As(err, &romErr) {
			log.WithField("kind", romErr.Kind).Fatal(romErr)
		}
		log.Fatal(err)
	}

	if *digest {
		for _, path := range []string{in, out} {
			sum, err := fileDigest(path)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%016x  %s\n", sum, path)
		}
	}
}

func fileDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return h.Sum64(), nil
}
