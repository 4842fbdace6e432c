// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import "strings"

// FilesWithAttr returns every live entry carrying all bits in want.
func (a *Archive) FilesWithAttr(want EntryAttr) []FileInfo {
	out := make([]FileInfo, 0)
	for _, info := range a.Files() {
		if info.Attrs&want == want {
			out = append(out, info)
		}
	}
	return out
}

// FilesOfType returns every live entry whose Type matches fileType exactly.
func (a *Archive) FilesOfType(fileType string) []FileInfo {
	out := make([]FileInfo, 0)
	for _, info := range a.Files() {
		if info.Type == fileType {
			out = append(out, info)
		}
	}
	return out
}

// FilesWithSuffix returns every live entry whose name ends with suffix,
// case-insensitively; useful for picking out e.g. all ".TBSA" music
// entries synthesized from a numeric type code.
func (a *Archive) FilesWithSuffix(suffix string) []FileInfo {
	suffix = strings.ToLower(suffix)
	out := make([]FileInfo, 0)
	for _, info := range a.Files() {
		if strings.HasSuffix(strings.ToLower(info.Name), suffix) {
			out = append(out, info)
		}
	}
	return out
}
