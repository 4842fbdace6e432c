// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

// TailBytes holds an opaque region a strategy does not interpret but must
// round-trip verbatim on Flush. East Point EPF's hidden data after the FAT
// region is the motivating case: the reference source leaves its handling
// unspecified, so this library preserves it byte-for-byte instead of
// guessing at a meaning.
type TailBytes struct {
	Data []byte
}

// Len returns the tail's current length.
func (t *TailBytes) Len() int64 { return int64(len(t.Data)) }

// Set replaces the tail contents.
func (t *TailBytes) Set(b []byte) {
	t.Data = append(t.Data[:0], b...)
}
