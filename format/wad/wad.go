// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package wad implements the Doom WAD archive strategy: a 12-byte header
// (IWAD/PWAD signature, file count, FAT offset) followed by file data and
// an external FAT of 16-byte records.
package wad

import (
	"encoding/binary"
	"io"
	"strings"

	ga "github.com/camoto-go/gamearchive"
	"github.com/camoto-go/gamearchive/gastream"
)

const (
	headerLen          = 12
	fatEntryLen         = 16
	nameFieldLen        = 8
	safetyMaxFileCount  = 8192
)

func init() {
	ga.DefaultRegistry().Register(ga.Factory{
		Info: ga.FormatInfo{
			Code:         "wad-doom",
			FriendlyName: "Doom WAD File",
			Extensions:   []string{"wad", "rts"},
			Games:        []string{"Doom", "Duke Nukem 3D", "Heretic", "Hexen", "Redneck Rampage", "Rise of the Triad", "Shadow Warrior"},
		},
		Identify: identify,
		Open:     openArchive,
		New:      newArchive,
	})
}

func identify(r io.ReaderAt, size int64) (ga.Certainty, error) {
	if size < headerLen {
		return ga.DefinitelyNo, nil
	}
	sig := make([]byte, 4)
	if _, err := r.ReadAt(sig, 0); err != nil {
		return ga.DefinitelyNo, err
	}
	if string(sig) == "IWAD" || string(sig) == "PWAD" {
		return ga.DefinitelyYes, nil
	}
	return ga.DefinitelyNo, nil
}

type hooks struct {
	ga.BaseHooks
}

func (h *hooks) entrySlot(e *ga.Entry) int64 { return headerLen + int64(e.Index)*fatEntryLen }

func padName(name string) []byte {
	buf := make([]byte, nameFieldLen)
	copy(buf, strings.ToUpper(name))
	return buf
}

func (h *hooks) UpdateFileName(e *ga.Entry, name string) error {
	if len(name) > nameFieldLen {
		return &ga.InvalidNameError{Msg: "name exceeds 8 characters"}
	}
	s := h.Archive.Stream()
	if _, err := s.Seek(h.entrySlot(e)+8, io.SeekStart); err != nil {
		return err
	}
	_, err := s.Write(padName(name))
	return err
}

func (h *hooks) UpdateFileOffset(e *ga.Entry, _ int64) error {
	s := h.Archive.Stream()
	if _, err := s.Seek(h.entrySlot(e), io.SeekStart); err != nil {
		return err
	}
	return binary.Write(s, binary.LittleEndian, uint32(e.Offset))
}

func (h *hooks) UpdateFileSize(e *ga.Entry, _ int64) error {
	s := h.Archive.Stream()
	if _, err := s.Seek(h.entrySlot(e)+4, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(s, binary.LittleEndian, uint32(e.StoredSize))
}

func (h *hooks) PreInsert(before, newEntry *ga.Entry) error {
	if len(newEntry.Name) > nameFieldLen {
		return &ga.InvalidNameError{Msg: "name exceeds 8 characters"}
	}
	newEntry.HeaderLen = 0

	oldDataStart := headerLen + int64(h.Archive.EntryCount())*fatEntryLen
	// The new FAT slot isn't in the vector yet, so its own data offset must
	// be bumped manually to account for the FAT table growing by one slot.
	newEntry.Offset += fatEntryLen

	s := h.Archive.Stream()
	slot := h.entrySlot(newEntry)
	if _, err := s.Seek(slot, io.SeekStart); err != nil {
		return err
	}
	if err := s.Insert(fatEntryLen); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(newEntry.Offset)); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(newEntry.StoredSize)); err != nil {
		return err
	}
	if _, err := s.Write(padName(newEntry.Name)); err != nil {
		return err
	}

	h.Archive.ShiftFiles(nil, oldDataStart, fatEntryLen, 0)
	return nil
}

func (h *hooks) PostInsert(*ga.Entry) error {
	return h.updateFileCount(h.Archive.EntryCount())
}

func (h *hooks) PreRemove(e *ga.Entry) error {
	// Must shift before the FAT slot is erased, else the shift would write
	// a stale offset into the record about to be removed.
	dataStart := headerLen + int64(h.Archive.EntryCount())*fatEntryLen
	h.Archive.ShiftFiles(nil, dataStart, -fatEntryLen, 0)

	s := h.Archive.Stream()
	if _, err := s.Seek(h.entrySlot(e), io.SeekStart); err != nil {
		return err
	}
	return s.Remove(fatEntryLen)
}

func (h *hooks) PostRemove(*ga.Entry) error {
	return h.updateFileCount(h.Archive.EntryCount())
}

func (h *hooks) updateFileCount(n int) error {
	s := h.Archive.Stream()
	if _, err := s.Seek(4, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(s, binary.LittleEndian, uint32(n))
}

func (h *hooks) Attribute(i int, v string) error {
	if i != 0 {
		return ga.ErrUnknownAttribute
	}
	if v != "IWAD" && v != "PWAD" {
		return &ga.InvalidNameError{Msg: "Type must be IWAD or PWAD"}
	}
	return nil
}

func (h *hooks) Flush() error {
	attrs := h.Archive.Attributes()
	if len(attrs) == 0 || !attrs[0].Changed() {
		return nil
	}
	val := byte('P')
	if attrs[0].Value == "IWAD" {
		val = 'I'
	}
	s := h.Archive.Stream()
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := s.Write([]byte{val})
	return err
}

func (h *hooks) SupportedAttributes() ga.EntryAttr { return ga.AttrDefault }

func openArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	stream, err := gastream.New(rw, rw.Truncate)
	if err != nil {
		return nil, err
	}

	if _, err := stream.Seek(4, io.SeekStart); err != nil {
		return nil, err
	}
	var numFiles, offFAT uint32
	if err := binary.Read(stream, binary.LittleEndian, &numFiles); err != nil {
		return nil, err
	}
	if err := binary.Read(stream, binary.LittleEndian, &offFAT); err != nil {
		return nil, err
	}
	if numFiles >= safetyMaxFileCount {
		return nil, &ga.CorruptFATError{Msg: "too many files or corrupted archive"}
	}

	arc := ga.NewArchive(stream, headerLen, nameFieldLen, &hooks{})

	entries := make([]*ga.Entry, 0, numFiles)
	if _, err := stream.Seek(int64(offFAT), io.SeekStart); err != nil {
		return nil, err
	}
	for i := 0; i < int(numFiles); i++ {
		var off, sz uint32
		if err := binary.Read(stream, binary.LittleEndian, &off); err != nil {
			return nil, err
		}
		if err := binary.Read(stream, binary.LittleEndian, &sz); err != nil {
			return nil, err
		}
		nameBuf := make([]byte, nameFieldLen)
		if _, err := io.ReadFull(stream, nameBuf); err != nil {
			return nil, err
		}
		entries = append(entries, &ga.Entry{
			Index:      i,
			Offset:     int64(off),
			StoredSize: int64(sz),
			RealSize:   int64(sz),
			Name:       strings.TrimRight(string(nameBuf), "\x00"),
			Type:       ga.FileTypeGeneric,
			Attrs:      ga.AttrDefault,
			Valid:      true,
		})
	}
	arc.Seed(entries)

	var sig [1]byte
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := stream.Read(sig[:]); err != nil {
		return nil, err
	}
	value := "PWAD"
	if sig[0] == 'I' {
		value = "IWAD"
	}
	arc.SetAttributes([]*ga.Attribute{
		ga.NewEnumAttribute("Type",
			"IWAD files must contain all data for the game; PWAD files take "+
				"priority and override files, falling back to the IWAD for anything missing.",
			[]string{"IWAD", "PWAD"}, value),
	})

	return arc, nil
}

func newArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := rw.Write([]byte("IWAD\x00\x00\x00\x00\x0c\x00\x00\x00")); err != nil {
		return nil, err
	}
	return openArchive(rw, nil)
}
