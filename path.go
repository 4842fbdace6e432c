// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import "strings"

// Split83 splits name into its DOS 8.3 base and extension, as Monolith
// Blood RFF's FAT record requires: up to 8 base characters, up to 3
// extension characters, joined by ".". It fails for names that don't fit.
func Split83(name string) (base, ext string, err error) {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		base, ext = name, ""
	} else {
		base, ext = name[:dot], name[dot+1:]
	}
	if len(base) > 8 || len(ext) > 3 {
		return "", "", &InvalidNameError{Msg: "name does not fit the 8.3 convention"}
	}
	return base, ext, nil
}

// Join83 reassembles a base/extension pair parsed from an 8.3 FAT record
// into a display name.
func Join83(base, ext string) string {
	base = strings.TrimRight(base, "\x00")
	ext = strings.TrimRight(ext, "\x00")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// SplitExt returns name without its extension and the extension itself
// (without the dot), used by formats that synthesize a filename extension
// from a numeric type code.
func SplitExt(name string) (stem, ext string) {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return name, ""
	}
	return name[:dot], name[dot+1:]
}
