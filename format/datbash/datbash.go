// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package datbash implements the Monster Bash DAT archive strategy: no
// archive-level header at all, just a back-to-back sequence of 37-byte
// embedded per-file headers (numeric type, size, name, decompressed
// size) each immediately followed by that file's data.
package datbash

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	ga "github.com/camoto-go/gamearchive"
	"github.com/camoto-go/gamearchive/gastream"
)

const (
	firstFileOffset = 0
	maxNameLen      = 30
	nameFieldLen    = 31
	efatEntryLen    = 37
	maxStoredSize   = 0xFFFF
)

func init() {
	ga.DefaultRegistry().Register(ga.Factory{
		Info: ga.FormatInfo{
			Code:         "dat-bash",
			FriendlyName: "Monster Bash DAT File",
			Extensions:   []string{"dat"},
			Games:        []string{"Monster Bash"},
		},
		Identify: identify,
		Open:     openArchive,
		New:      newArchive,
	})
}

// identify walks the whole embedded-FAT chain, the same check the
// reference format uses since there is no archive-level signature to
// check instead.
func identify(r io.ReaderAt, size int64) (ga.Certainty, error) {
	var pos int64
	hdr := make([]byte, 4)
	name := make([]byte, nameFieldLen)
	for pos < size {
		if _, err := r.ReadAt(hdr, pos); err != nil {
			return ga.DefinitelyNo, nil
		}
		entryLen := binary.LittleEndian.Uint16(hdr[2:4])
		if _, err := r.ReadAt(name, pos+4); err != nil {
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
		pos += efatEntryLen + int64(entryLen)
		if pos > size {
			return ga.DefinitelyNo, nil
		}
	}
	return ga.DefinitelyYes, nil
}

type hooks struct {
	ga.BaseHooks
}

func padField(s string, n int) []byte {
	buf := make([]byte, n)
	copy(buf, s)
	return buf
}

// typeForName maps a display name's synthetic extension back to Monster
// Bash's numeric file type and the bare stem actually stored on disk.
func typeForName(name string) (typeNum uint16, stem string) {
	base, ext := ga.SplitExt(name)
	switch strings.ToLower(ext) {
	case "mif":
		return 0, base
	case "mbg":
		return 1, base
	case "mfg":
		return 2, base
	case "tbg":
		return 3, base
	case "tfg":
		return 4, base
	case "tbn":
		return 5, base
	case "msp":
		return 7, base
	case "spr":
		return 64, base
	default:
		return 32, name
	}
}

// nameForType synthesizes the display name and mime-like type string
// for a raw on-disk type code and stem, the inverse of typeForName.
func nameForType(typ uint16, stem string) (name, fileType string) {
	switch typ {
	case 0:
		return stem + ".mif", "map/bash-info"
	case 1:
		return stem + ".mbg", "map/bash-bg"
	case 2:
		return stem + ".mfg", "map/bash-fg"
	case 3:
		return stem + ".tbg", "image/bash-tiles-bg"
	case 4:
		return stem + ".tfg", "image/bash-tiles-fg"
	case 5:
		return stem + ".tbn", "image/bash-tiles-fg"
	case 7:
		return stem + ".msp", "map/bash-sprites"
	case 8:
		return stem, "sound/bash"
	case 64:
		return stem + ".spr", "image/bash-sprite"
	case 32:
		return stem, ga.FileTypeGeneric
	default:
		return fmt.Sprintf("%s.%d", stem, typ), fmt.Sprintf("unknown/bash-%d", typ)
	}
}

func (h *hooks) UpdateFileName(e *ga.Entry, name string) error {
	typeNum, stem := typeForName(name)
	if len(stem) > maxNameLen {
		return &ga.InvalidNameError{Msg: "name exceeds 30 characters"}
	}
	s := h.Archive.Stream()
	if _, err := s.Seek(e.Offset, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, typeNum); err != nil {
		return err
	}
	if _, err := s.Seek(e.Offset+4, io.SeekStart); err != nil {
		return err
	}
	_, err := s.Write(padField(strings.ToUpper(stem), nameFieldLen))
	return err
}

func (h *hooks) UpdateFileSize(e *ga.Entry, _ int64) error {
	if e.StoredSize > maxStoredSize {
		return &ga.FormatLimitError{Msg: "stored size exceeds 65535 bytes"}
	}
	s := h.Archive.Stream()
	if _, err := s.Seek(e.Offset+2, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint16(e.StoredSize)); err != nil {
		return err
	}
	if _, err := s.Seek(e.Offset+35, io.SeekStart); err != nil {
		return err
	}
	prefiltered := uint16(0)
	if e.Attrs.Has(ga.AttrCompressed) {
		prefiltered = uint16(e.RealSize)
	}
	return binary.Write(s, binary.LittleEndian, prefiltered)
}

// PreInsert makes room for the new entry's embedded header at its own
// offset and shifts every later entry by the header length, separately
// from the engine's own data-region shift that follows.
func (h *hooks) PreInsert(before, newEntry *ga.Entry) error {
	_, stem := typeForName(newEntry.Name)
	if len(stem) > maxNameLen {
		return &ga.InvalidNameError{Msg: "name exceeds 30 characters"}
	}
	if newEntry.StoredSize > maxStoredSize {
		return &ga.FormatLimitError{Msg: "stored size exceeds 65535 bytes"}
	}
	newEntry.HeaderLen = efatEntryLen
	if newEntry.Attrs.Has(ga.AttrCompressed) {
		newEntry.Filter = "lzw-bash"
	}

	s := h.Archive.Stream()
	if _, err := s.Seek(newEntry.Offset, io.SeekStart); err != nil {
		return err
	}
	if err := s.Insert(efatEntryLen); err != nil {
		return err
	}

	h.Archive.ShiftFiles(nil, newEntry.Offset, efatEntryLen, 0)
	return nil
}

func (h *hooks) PostInsert(newEntry *ga.Entry) error {
	typeNum, stem := typeForName(newEntry.Name)
	s := h.Archive.Stream()
	if _, err := s.Seek(newEntry.Offset, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, typeNum); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint16(newEntry.StoredSize)); err != nil {
		return err
	}
	if _, err := s.Write(padField(strings.ToUpper(stem), nameFieldLen)); err != nil {
		return err
	}
	prefiltered := uint16(0)
	if newEntry.Attrs.Has(ga.AttrCompressed) {
		prefiltered = uint16(newEntry.RealSize)
	}
	return binary.Write(s, binary.LittleEndian, prefiltered)
}

func (h *hooks) SupportedAttributes() ga.EntryAttr { return ga.AttrCompressed }

func openArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	stream, err := gastream.New(rw, rw.Truncate)
	if err != nil {
		return nil, err
	}
	lenArchive := stream.Size()

	h := &hooks{}
	arc := ga.NewArchive(stream, firstFileOffset, maxNameLen, h)

	var entries []*ga.Entry
	var pos int64
	idx := 0
	for pos < lenArchive {
		if _, err := stream.Seek(pos, io.SeekStart); err != nil {
			return nil, err
		}
		var typ, size, prefiltered uint16
		if err := binary.Read(stream, binary.LittleEndian, &typ); err != nil {
			return nil, err
		}
		if err := binary.Read(stream, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		nameBuf := make([]byte, nameFieldLen)
		if _, err := io.ReadFull(stream, nameBuf); err != nil {
			return nil, err
		}
		if err := binary.Read(stream, binary.LittleEndian, &prefiltered); err != nil {
			return nil, err
		}

		stem := strings.TrimRight(string(nameBuf), "\x00")
		name, fileType := nameForType(typ, stem)

		e := &ga.Entry{
			Index:      idx,
			Offset:     pos,
			HeaderLen:  efatEntryLen,
			StoredSize: int64(size),
			RealSize:   int64(size),
			Name:       name,
			Type:       fileType,
			Attrs:      ga.AttrDefault,
			Valid:      true,
		}
		if prefiltered != 0 {
			e.Attrs |= ga.AttrCompressed
			e.Filter = "lzw-bash"
			e.RealSize = int64(prefiltered)
		}
		entries = append(entries, e)

		pos += efatEntryLen + int64(size)
		idx++
	}
	if pos > lenArchive {
		return nil, &ga.CorruptFATError{Msg: "entry points past end of archive"}
	}
	arc.Seed(entries)

	return arc, nil
}

func newArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	return openArchive(rw, nil)
}
