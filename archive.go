// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import (
	"io"
	"strings"
	"sync"
	"weak"

	"github.com/camoto-go/gamearchive/gastream"
)

// Archive is the format-agnostic FAT engine instance. A format strategy
// constructs one by parsing its header and FAT, then calling NewArchive
// and Seed; from there every mutation (Insert, Remove, Rename, Resize,
// Move) and Flush go through this type regardless of the underlying
// format.
type Archive struct {
	stream       *gastream.Stream
	offFirstFile int64
	maxNameLen   int
	entries      []*Entry
	attrs        []*Attribute
	hooks        Hooks

	openViews []weak.Pointer[gastream.SubStream]
	writeOpen map[*Entry]bool

	// ioMu serializes access to the shared stream's single cursor across
	// ReadEntry calls, so callers like ExtractAll can fan a bulk read out
	// across goroutines without two of them racing on stream.pos. It does
	// not make Insert/Remove/Rename/Resize/Move/Flush concurrency-safe;
	// see doc.go.
	ioMu sync.Mutex

	poisoned bool
}

// NewArchive builds an Archive over stream. offFirstFile is the byte
// offset of the first file in an empty archive; maxNameLen is the
// strategy's maximum filename length, 0 meaning unlimited.
func NewArchive(stream *gastream.Stream, offFirstFile int64, maxNameLen int, hooks Hooks) *Archive {
	a := &Archive{
		stream:       stream,
		offFirstFile: offFirstFile,
		maxNameLen:   maxNameLen,
		hooks:        hooks,
		writeOpen:    make(map[*Entry]bool),
	}
	hooks.BindArchive(a)
	return a
}

// Stream exposes the backing segmented stream so a strategy's hooks can
// read and write its own on-disk FAT bytes directly.
func (a *Archive) Stream() *gastream.Stream { return a.stream }

// EntryCount returns the number of entries currently in the file vector,
// including any not yet flushed.
func (a *Archive) EntryCount() int { return len(a.entries) }

// ShiftFiles propagates an offset/index delta to every entry at or after
// fromOffset (other than skip) and relocates live open views accordingly.
// Strategies whose on-disk FAT table sits ahead of the data region (e.g.
// Doom WAD's FAT-before-data layout) call this directly from PreInsert/
// PreRemove to account for the FAT table itself growing or shrinking,
// independently of the engine's own data-region shift.
func (a *Archive) ShiftFiles(skip *Entry, fromOffset, deltaOffset int64, deltaIndex int) {
	a.shiftFiles(skip, fromOffset, deltaOffset, deltaIndex)
}

// Seed populates the file vector; called once by the strategy constructor
// after parsing the on-disk FAT.
func (a *Archive) Seed(entries []*Entry) { a.entries = entries }

// SetAttributes installs the archive-level attribute list; called once by
// the strategy constructor.
func (a *Archive) SetAttributes(attrs []*Attribute) { a.attrs = attrs }

// Attributes returns the archive-level attribute list.
func (a *Archive) Attributes() []*Attribute { return a.attrs }

// SetAttribute validates index i and forwards the write to the strategy's
// Attribute hook, marking the attribute changed on success.
func (a *Archive) SetAttribute(i int, value string) error {
	if i < 0 || i >= len(a.attrs) {
		return ErrUnknownAttribute
	}
	if err := a.hooks.Attribute(i, value); err != nil {
		return err
	}
	a.attrs[i].SetValue(value)
	return nil
}

func (a *Archive) checkPoisoned() error {
	if a.poisoned {
		return ErrPoisoned
	}
	return nil
}

// Files returns an immutable snapshot of every live entry, in file-vector
// order.
func (a *Archive) Files() []FileInfo {
	out := make([]FileInfo, 0, len(a.entries))
	for _, e := range a.entries {
		if e.Valid {
			out = append(out, infoFor(e))
		}
	}
	return out
}

// Find returns a Handle for the first live entry whose name matches name
// case-insensitively (ASCII).
func (a *Archive) Find(name string) (Handle, error) {
	for _, e := range a.entries {
		if e.Valid && strings.EqualFold(e.Name, name) {
			return handleFor(e), nil
		}
	}
	return Handle{}, ErrEntryNotFound
}

// Open returns a sub-stream over handle's data region, optionally wrapped
// in its registered filter. The returned stream is tracked weakly: it
// stays valid and correctly windowed across later shifts, but does not
// keep the Archive's bookkeeping alive once dropped.
func (a *Archive) Open(h Handle, useFilter bool) (*EntryStream, error) {
	if err := a.checkPoisoned(); err != nil {
		return nil, err
	}
	e := h.entry
	if e == nil || !e.Valid {
		return nil, ErrHandleInvalid
	}
	if a.writeOpen[e] {
		return nil, ErrAlreadyOpenForWrite
	}

	sub := gastream.NewSubStream(a.stream, e.Offset+e.HeaderLen, e.StoredSize)
	a.openViews = append(a.openViews, weak.Make(sub))
	a.writeOpen[e] = true

	es := &EntryStream{arc: a, entry: e, sub: sub}
	if useFilter && e.Filter != "" {
		es.filterName = e.Filter
	}
	return es, nil
}

// ReadEntry reads the whole of handle's content, decoding through its
// filter when useFilter is set. Unlike Open, it is safe to call from
// multiple goroutines against the same Archive for different entries:
// it holds the Archive's I/O lock for the full open-read-close sequence,
// so two calls never interleave seeks against the shared stream cursor
// the way two independently-driven Open streams would. ExtractAll uses
// this to fan reads out across a worker pool.
func (a *Archive) ReadEntry(h Handle, useFilter bool) ([]byte, error) {
	a.ioMu.Lock()
	defer a.ioMu.Unlock()

	es, err := a.Open(h, useFilter)
	if err != nil {
		return nil, err
	}
	defer es.Close()
	return io.ReadAll(es)
}

func (a *Archive) releaseWrite(e *Entry) { delete(a.writeOpen, e) }

// validateName enforces the strategy's maximum filename length.
func (a *Archive) validateName(name string) error {
	if a.maxNameLen > 0 && len(name) > a.maxNameLen {
		return &InvalidNameError{Msg: "name exceeds maximum length"}
	}
	return nil
}

// Insert creates a new entry positioned before the entry identified by
// before (or appended after the last entry / at the empty-archive offset
// when before is the zero Handle), and returns its Handle.
func (a *Archive) Insert(before Handle, name string, storedSize int64, fileType string, attrs EntryAttr) (Handle, error) {
	if err := a.checkPoisoned(); err != nil {
		return Handle{}, err
	}
	if err := ValidateName(name); err != nil {
		return Handle{}, err
	}
	if err := a.validateName(name); err != nil {
		return Handle{}, err
	}
	if attrs &^ a.hooks.SupportedAttributes() != 0 {
		return Handle{}, &NotSupportedError{Msg: "format does not support one or more requested attributes"}
	}

	var beforeEntry *Entry
	insertAt := len(a.entries)
	if !before.IsZero() {
		if !before.Valid() {
			return Handle{}, ErrHandleInvalid
		}
		beforeEntry = before.entry
		for i, e := range a.entries {
			if e == beforeEntry {
				insertAt = i
				break
			}
		}
	}

	offset := a.offFirstFile
	switch {
	case beforeEntry != nil:
		offset = beforeEntry.Offset
	case len(a.entries) > 0:
		last := a.entries[len(a.entries)-1]
		offset = last.Offset + last.HeaderLen + last.StoredSize
	}

	newEntry := a.hooks.CreateNewFATEntry()
	newEntry.Name = name
	newEntry.Type = fileType
	newEntry.Attrs = attrs
	newEntry.Offset = offset
	newEntry.StoredSize = storedSize
	newEntry.RealSize = storedSize
	newEntry.Index = insertAt

	if err := a.hooks.PreInsert(beforeEntry, newEntry); err != nil {
		return Handle{}, err
	}

	// Mark valid before shiftFiles, not after: entryInRange's zero-length
	// same-offset tie-break only applies against a valid skip entry, so
	// marking newEntry valid here is what lets it correctly order itself
	// against other zero-length entries already sitting at its offset.
	newEntry.Valid = true

	a.shiftFiles(newEntry, newEntry.Offset+newEntry.HeaderLen, newEntry.StoredSize, +1)

	a.entries = append(a.entries, nil)
	copy(a.entries[insertAt+1:], a.entries[insertAt:])
	a.entries[insertAt] = newEntry

	if _, err := a.stream.Seek(newEntry.Offset+newEntry.HeaderLen, 0); err != nil {
		a.poisoned = true
		return Handle{}, err
	}
	if err := a.stream.Insert(newEntry.StoredSize); err != nil {
		a.poisoned = true
		return Handle{}, err
	}

	if err := a.hooks.PostInsert(newEntry); err != nil {
		a.poisoned = true
		return Handle{}, err
	}

	return handleFor(newEntry), nil
}

// Remove deletes the entry identified by handle from the archive.
func (a *Archive) Remove(h Handle) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	e := h.entry
	if e == nil || !e.Valid {
		return ErrHandleInvalid
	}
	if a.writeOpen[e] {
		return ErrAlreadyOpenForWrite
	}

	if err := a.hooks.PreRemove(e); err != nil {
		return err
	}

	for i, cand := range a.entries {
		if cand == e {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			break
		}
	}

	a.shiftFiles(e, e.Offset, -(e.StoredSize + e.HeaderLen), -1)

	if _, err := a.stream.Seek(e.Offset, 0); err != nil {
		a.poisoned = true
		return err
	}
	if err := a.stream.Remove(e.HeaderLen + e.StoredSize); err != nil {
		a.poisoned = true
		return err
	}

	e.Valid = false

	if err := a.hooks.PostRemove(e); err != nil {
		a.poisoned = true
		return err
	}
	return nil
}

// Rename changes handle's logical name.
func (a *Archive) Rename(h Handle, name string) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	e := h.entry
	if e == nil || !e.Valid {
		return ErrHandleInvalid
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := a.validateName(name); err != nil {
		return err
	}
	if err := a.hooks.UpdateFileName(e, name); err != nil {
		return err
	}
	e.Name = name
	return nil
}

// Resize changes handle's stored and real size, splicing the data region
// and propagating the offset delta to every later entry and live view.
func (a *Archive) Resize(h Handle, newStoredSize, newRealSize int64) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	e := h.entry
	if e == nil || !e.Valid {
		return ErrHandleInvalid
	}

	delta := newStoredSize - e.StoredSize
	if delta != 0 {
		if _, err := a.stream.Seek(e.Offset+e.HeaderLen+minInt64(e.StoredSize, newStoredSize), 0); err != nil {
			a.poisoned = true
			return err
		}
		if delta > 0 {
			if err := a.stream.Insert(delta); err != nil {
				a.poisoned = true
				return err
			}
		} else {
			if err := a.stream.Remove(-delta); err != nil {
				a.poisoned = true
				return err
			}
		}
	}

	e.StoredSize = newStoredSize
	e.RealSize = newRealSize

	if err := a.hooks.UpdateFileSize(e, delta); err != nil {
		a.poisoned = true
		return err
	}

	if delta != 0 {
		a.shiftFiles(e, e.Offset+e.HeaderLen+minInt64(e.StoredSize, e.StoredSize-delta), delta, 0)
		for _, wp := range a.openViews {
			if sub := wp.Value(); sub != nil && sub.Offset() == e.Offset+e.HeaderLen {
				sub.Resize(newStoredSize)
			}
		}
	}

	return nil
}

// Move relocates handle to sit immediately before the entry identified by
// before, preserving data and, where possible, the entry's filter and
// decoded size. It is implemented as a guarded insert-then-remove,
// following the original engine's Archive_FAT::move algorithm: the
// destination slot is created (and its filter checked against the
// source's) before the source slot is reclaimed, and a filter mismatch
// aborts the move with the destination slot rolled back rather than
// silently re-filtering the data.
func (a *Archive) Move(before, h Handle) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	e := h.entry
	if e == nil || !e.Valid {
		return ErrHandleInvalid
	}

	src, err := a.Open(h, false)
	if err != nil {
		return err
	}
	data := make([]byte, e.StoredSize)
	if _, err := src.Read(data); err != nil {
		_ = src.Close()
		return err
	}
	if err := src.Close(); err != nil {
		return err
	}

	name, fileType, attrs, filter, realSize := e.Name, e.Type, e.Attrs, e.Filter, e.RealSize

	newHandle, err := a.Insert(before, name, int64(len(data)), fileType, attrs)
	if err != nil {
		return err
	}
	newEntry := newHandle.entry

	if newEntry.Filter != filter {
		_ = a.Remove(newHandle)
		return &NotSupportedError{Msg: "cannot move file to this position: filter would change - remove and add it instead"}
	}

	dst, err := a.Open(newHandle, false)
	if err != nil {
		return err
	}
	if _, err := dst.Write(data); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	if filter != "" {
		if err := a.Resize(newHandle, newEntry.StoredSize, realSize); err != nil {
			return err
		}
	}

	if err := a.Remove(h); err != nil {
		return err
	}

	// Rebind the caller's entry to the new slot so handle stays valid.
	*e = *newEntry
	for i, cand := range a.entries {
		if cand == newEntry {
			a.entries[i] = e
			break
		}
	}
	newEntry.Valid = false
	return nil
}

// Flush lets the strategy commit any private buffered stream (e.g. an
// encrypted FAT) before committing the segmented stream's pending edits
// to the backing stream.
func (a *Archive) Flush() error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.hooks.Flush(); err != nil {
		return err
	}
	if err := a.stream.Flush(); err != nil {
		return err
	}
	for _, attr := range a.attrs {
		attr.clearChanged()
	}
	return nil
}

// entryInRange reports whether e is shifted by a shiftFiles pass starting
// at fromOffset and skipping skip, mirroring the original engine's
// Archive_FAT::entryInRange: entries before fromOffset are untouched;
// skip itself is untouched; and, when skip is a valid (already-live)
// entry, a zero-length entry sharing skip's offset is untouched only if
// it sorts before skip in index order. skip is invalid while Insert's new
// entry is still pending, which is also while it is absent from
// a.entries, so the tie-break never needs to apply there.
func entryInRange(e, skip *Entry, fromOffset int64) bool {
	if e.Offset < fromOffset {
		return false
	}
	if skip != nil && skip.Valid {
		if e == skip {
			return false
		}
		if e.StoredSize == 0 && e.Offset == skip.Offset && e.Index < skip.Index {
			return false
		}
	}
	return true
}

// shiftFiles propagates an offset/index delta to every entry in range (see
// entryInRange) and relocates every live open view whose window starts at
// or after fromOffset. Per the engine's ordering rule, each entry's Index
// is updated before its strategy UpdateFileOffset hook runs, since the
// hook locates the on-disk FAT slot by Index.
func (a *Archive) shiftFiles(skip *Entry, fromOffset, deltaOffset int64, deltaIndex int) {
	for _, e := range a.entries {
		if !entryInRange(e, skip, fromOffset) {
			continue
		}

		e.Index += deltaIndex
		e.Offset += deltaOffset
		_ = a.hooks.UpdateFileOffset(e, deltaOffset)
	}

	if deltaOffset != 0 {
		for _, wp := range a.openViews {
			sub := wp.Value()
			if sub == nil {
				continue
			}
			if sub.Offset() >= fromOffset {
				sub.Relocate(deltaOffset)
			}
		}
	}

	a.pruneViews()
}

func (a *Archive) pruneViews() {
	alive := a.openViews[:0]
	for _, wp := range a.openViews {
		if wp.Value() != nil {
			alive = append(alive, wp)
		}
	}
	a.openViews = alive
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
