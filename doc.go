// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

/*
Package gamearchive reads, mutates, and writes retro-game archive
containers: monolithic blobs that bundle many logical files behind a
header and a file-allocation table (FAT). Doom WAD, Monolith Blood RFF,
East Point EPF, Monster Bash DAT, Doofus G-D, and Stellar 7 RES are
supported through the format subpackages; each registers itself with the
root Registry so callers can open a stream by probing rather than naming
a format up front.

# Opening an archive

	reg := gamearchive.DefaultRegistry()
	f, err := os.OpenFile("DOOM.WAD", os.O_RDWR, 0o644)
	if err != nil {
	    return err
	}
	defer f.Close()

	arc, strat, err := reg.Open(f, nil)
	if err != nil {
	    return err
	}
	for _, info := range arc.Files() {
	    fmt.Println(info.Name, info.StoredSize)
	}
	_ = strat

# Mutating an archive

	h, err := arc.Find("ONE.DAT")
	if err != nil {
	    return err
	}
	if err := arc.Rename(h, "THREE.DAT"); err != nil {
	    return err
	}
	if err := arc.Flush(); err != nil {
	    return err
	}

# Reading file contents

	sub, err := arc.Open(h, true) // true: apply the entry's filter, if any
	if err != nil {
	    return err
	}
	data, err := io.ReadAll(sub)

Every mutating operation (Insert, Remove, Rename, Resize, Move) is
documented on Archive; all of them propagate offset/index changes to
every other live entry and every open sub-stream before returning. Flush
commits the segmented stream's pending edits to the backing file in a
single pass.

Package gamearchive is not safe for concurrent use on the same Archive;
callers must serialize their own access. The one exception is ReadEntry,
which ExtractAll uses internally to fan reads for different entries out
across a worker pool; it holds the Archive's own I/O lock for the full
read, so concurrent ReadEntry calls are safe even though concurrent Open
calls followed by independent reads are not. See gastream for the
segmented-stream and sub-stream primitives, and gafilter for the filter
codec registry.
*/
package gamearchive
