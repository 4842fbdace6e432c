// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package stellar7 implements the Stellar 7 RES archive strategy: a flat
// run of 8-byte embedded headers (4-byte name, u32le size with the top
// bit marking a folder) each immediately followed by that entry's data.
// A folder entry's data is itself a nested RES archive, opened
// recursively via OpenFolder.
package stellar7

import (
	"encoding/binary"
	"io"
	"strings"

	ga "github.com/camoto-go/gamearchive"
	"github.com/camoto-go/gamearchive/gastream"
)

const (
	firstFileOffset    = 0
	maxNameLen         = 4
	fatEntryLen        = 8
	safetyMaxFileCount = 8192
	folderBit          = 0x80000000
	sizeMask           = 0x7FFFFFFF
)

func init() {
	ga.DefaultRegistry().Register(ga.Factory{
		Info: ga.FormatInfo{
			Code:         "res-stellar7",
			FriendlyName: "Stellar 7 Resource File",
			Extensions:   []string{"res"},
			Games:        []string{"Stellar 7"},
		},
		Identify: identify,
		Open:     openArchive,
		New:      newArchive,
	})
}

func identify(r io.ReaderAt, size int64) (ga.Certainty, error) {
	var offNext int64
	i := 0
	for ; i < safetyMaxFileCount && offNext+fatEntryLen <= size; i++ {
		name := make([]byte, maxNameLen)
		if _, err := r.ReadAt(name, offNext); err != nil {
			return ga.DefinitelyNo, nil
		}
		for _, c := range name {
			if c == 0 {
				break
			}
			if c < 32 {
				return ga.DefinitelyNo, nil
			}
		}
		raw := make([]byte, 4)
		if _, err := r.ReadAt(raw, offNext+4); err != nil {
			return ga.DefinitelyNo, nil
		}
		isFolderLen := binary.LittleEndian.Uint32(raw)
		entrySize := int64(isFolderLen & sizeMask)
		offNext += fatEntryLen + entrySize
		if offNext > size {
			return ga.DefinitelyNo, nil
		}
	}
	if i == safetyMaxFileCount {
		return ga.PossiblyYes, nil
	}
	return ga.DefinitelyYes, nil
}

type hooks struct {
	ga.BaseHooks
}

func padName(name string) []byte {
	buf := make([]byte, maxNameLen)
	copy(buf, strings.ToUpper(name))
	return buf
}

func (h *hooks) UpdateFileName(e *ga.Entry, name string) error {
	if len(name) > maxNameLen {
		return &ga.InvalidNameError{Msg: "name exceeds 4 characters"}
	}
	s := h.Archive.Stream()
	if _, err := s.Seek(e.Offset, io.SeekStart); err != nil {
		return err
	}
	_, err := s.Write(padName(name))
	return err
}

func (h *hooks) UpdateFileSize(e *ga.Entry, _ int64) error {
	v := uint32(e.StoredSize)
	if e.Attrs.Has(ga.AttrFolder) {
		v |= folderBit
	}
	s := h.Archive.Stream()
	if _, err := s.Seek(e.Offset+4, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(s, binary.LittleEndian, v)
}

// PreInsert inserts the embedded header in place and shifts every later
// entry by its length, since the generic engine only ever inserts the
// data bytes that follow HeaderLen, never the header itself.
func (h *hooks) PreInsert(before, newEntry *ga.Entry) error {
	if len(newEntry.Name) > maxNameLen {
		return &ga.InvalidNameError{Msg: "name exceeds 4 characters"}
	}
	newEntry.HeaderLen = fatEntryLen

	s := h.Archive.Stream()
	if _, err := s.Seek(newEntry.Offset, io.SeekStart); err != nil {
		return err
	}
	if err := s.Insert(fatEntryLen); err != nil {
		return err
	}

	v := uint32(newEntry.StoredSize)
	if newEntry.Attrs.Has(ga.AttrFolder) {
		v |= folderBit
	}
	if _, err := s.Write(padName(newEntry.Name)); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, v); err != nil {
		return err
	}

	h.Archive.ShiftFiles(nil, newEntry.Offset, fatEntryLen, 0)
	return nil
}

func (h *hooks) SupportedAttributes() ga.EntryAttr { return ga.AttrFolder | ga.AttrDefault }

func openArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	stream, err := gastream.New(rw, rw.Truncate)
	if err != nil {
		return nil, err
	}
	lenArchive := stream.Size()

	arc := ga.NewArchive(stream, firstFileOffset, maxNameLen, &hooks{})

	var entries []*ga.Entry
	var offNext int64
	for i := 0; i < safetyMaxFileCount && offNext+fatEntryLen <= lenArchive; i++ {
		if _, err := stream.Seek(offNext, io.SeekStart); err != nil {
			return nil, err
		}
		nameBuf := make([]byte, maxNameLen)
		if _, err := io.ReadFull(stream, nameBuf); err != nil {
			return nil, err
		}
		var isFolderLen uint32
		if err := binary.Read(stream, binary.LittleEndian, &isFolderLen); err != nil {
			return nil, err
		}

		e := &ga.Entry{
			Index:      i,
			Offset:     offNext,
			HeaderLen:  fatEntryLen,
			StoredSize: int64(isFolderLen & sizeMask),
			RealSize:   int64(isFolderLen & sizeMask),
			Name:       strings.TrimRight(string(nameBuf), "\x00"),
			Type:       ga.FileTypeGeneric,
			Attrs:      ga.AttrDefault,
			Valid:      true,
		}
		if isFolderLen&folderBit != 0 {
			e.Attrs |= ga.AttrFolder
		}

		offNext += fatEntryLen + e.StoredSize
		if offNext > lenArchive {
			// Archive has been truncated or isn't really RES; stop here
			// rather than fail, matching the reference reader's tolerance.
			break
		}
		entries = append(entries, e)
	}
	arc.Seed(entries)

	return arc, nil
}

func newArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	return openArchive(rw, nil)
}

// folderBacking adapts an open entry stream into a BackingStream so a
// folder entry's data can be reopened as a nested archive: Truncate
// grows or shrinks the entry itself via Resize on the parent archive.
type folderBacking struct {
	*ga.EntryStream
	resize func(int64) error
}

func (f *folderBacking) Truncate(n int64) error { return f.resize(n) }

// OpenFolder reopens a folder entry's data region as a nested archive in
// its own right, the same recursive structure the reference reader uses
// for the directory tree this format embeds in-band.
func OpenFolder(arc *ga.Archive, h ga.Handle) (*ga.Archive, error) {
	isFolder := false
	for _, fi := range arc.Files() {
		if fi.Handle == h {
			isFolder = fi.Attrs.Has(ga.AttrFolder)
			break
		}
	}
	if !isFolder {
		return nil, &ga.NotSupportedError{Msg: "entry is not a folder"}
	}

	es, err := arc.Open(h, false)
	if err != nil {
		return nil, err
	}
	backing := &folderBacking{
		EntryStream: es,
		resize:      func(n int64) error { return arc.Resize(h, n, n) },
	}
	return openArchive(backing, nil)
}
