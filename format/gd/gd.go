// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package gd implements the Doofus G-D archive strategy: the archive file
// itself holds nothing but back-to-back file data, while the fixed-size
// FAT (8-byte records: size, type, 4 unused bytes) lives inside a
// supplemental stream supplied by the caller, typically a slice of the
// game's .exe.
package gd

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	ga "github.com/camoto-go/gamearchive"
	"github.com/camoto-go/gamearchive/gastream"
)

const (
	firstFileOffset = 0
	fatEntryLen     = 8
	typeMusicTBSA   = 0x59EE
)

// ErrCannotCreate describes why this format has no creation support: a
// G-D archive's FAT has to live at a specific offset inside a specific
// version of the game's executable and there is no way to fabricate one
// from scratch. The format registers no New function, and nothing in this
// package returns this value.
var ErrCannotCreate = &ga.NotSupportedError{Msg: "cannot create archives from scratch in this format"}

func init() {
	ga.DefaultRegistry().Register(ga.Factory{
		Info: ga.FormatInfo{
			Code:         "gd-doofus",
			FriendlyName: "Doofus DAT File",
			Extensions:   []string{"g-d"},
			Games:        []string{"Doofus"},
		},
		Identify: identify,
		Open:     openArchive,
		New:      nil,
	})
}

// identify always returns Unsure: there is no identifying signature
// anywhere in a G-D archive.
func identify(_ io.ReaderAt, _ int64) (ga.Certainty, error) {
	return ga.Unsure, nil
}

func typeToName(typ uint16) string {
	switch typ {
	case 0x1636:
		return "unknown/doofus-1636"
	case 0x2376:
		return "unknown/doofus-2376"
	case 0x3276:
		return "unknown/doofus-3276"
	case 0x3F2E:
		return "unknown/doofus-3f2e"
	case 0x3F64:
		return "unknown/doofus-3f64"
	case 0x48BE:
		return "unknown/doofus-48be"
	case 0x43EE:
		return "unknown/doofus-43ee"
	case typeMusicTBSA:
		return "music/tbsa"
	default:
		return ga.FileTypeGeneric
	}
}

func nameToType(fileType string) uint16 {
	if strings.HasPrefix(fileType, "unknown/doofus-") {
		v, err := strconv.ParseUint(fileType[len("unknown/doofus-"):], 16, 16)
		if err == nil {
			return uint16(v)
		}
		return 0
	}
	if fileType == "music/tbsa" {
		return typeMusicTBSA
	}
	return 0
}

type hooks struct {
	ga.BaseHooks
	fat      *gastream.Stream
	maxFiles int
	numFiles int
}

func (h *hooks) UpdateFileOffset(*ga.Entry, int64) error { return nil }

func (h *hooks) UpdateFileSize(e *ga.Entry, _ int64) error {
	if _, err := h.fat.Seek(int64(e.Index)*fatEntryLen, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(h.fat, binary.LittleEndian, uint16(e.StoredSize))
}

// PreInsert keeps the FAT's overall length fixed: the last (vacant) slot
// is dropped from the end before the new record is inserted in place, the
// same trade the reference format makes to avoid ever resizing the
// supplemental stream.
func (h *hooks) PreInsert(before, newEntry *ga.Entry) error {
	if h.numFiles+1 >= h.maxFiles {
		return &ga.FormatLimitError{Msg: "maximum number of files reached in this archive format"}
	}
	newEntry.HeaderLen = 0

	if _, err := h.fat.Seek(-fatEntryLen, io.SeekEnd); err != nil {
		return err
	}
	if err := h.fat.Remove(fatEntryLen); err != nil {
		return err
	}

	slot := int64(newEntry.Index) * fatEntryLen
	if _, err := h.fat.Seek(slot, io.SeekStart); err != nil {
		return err
	}
	if err := h.fat.Insert(fatEntryLen); err != nil {
		return err
	}

	typ := nameToType(newEntry.Type)
	if err := binary.Write(h.fat, binary.LittleEndian, uint16(newEntry.StoredSize)); err != nil {
		return err
	}
	if err := binary.Write(h.fat, binary.LittleEndian, typ); err != nil {
		return err
	}
	if _, err := h.fat.Write(make([]byte, 4)); err != nil {
		return err
	}

	h.numFiles++
	return nil
}

func (h *hooks) PreRemove(e *ga.Entry) error {
	slot := int64(e.Index) * fatEntryLen
	if _, err := h.fat.Seek(slot, io.SeekStart); err != nil {
		return err
	}
	if err := h.fat.Remove(fatEntryLen); err != nil {
		return err
	}

	if _, err := h.fat.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if err := h.fat.Insert(fatEntryLen); err != nil {
		return err
	}

	h.numFiles--
	return nil
}

func (h *hooks) SupportedAttributes() ga.EntryAttr { return ga.AttrDefault }

func (h *hooks) Flush() error { return h.fat.Flush() }

func openArchive(rw ga.BackingStream, supp map[string]ga.BackingStream) (*ga.Archive, error) {
	suppFAT, ok := supp["FAT"]
	if !ok {
		return nil, &ga.NotSupportedError{Msg: "this format requires a supplemental FAT stream"}
	}

	stream, err := gastream.New(rw, rw.Truncate)
	if err != nil {
		return nil, err
	}
	fatStream, err := gastream.New(suppFAT, suppFAT.Truncate)
	if err != nil {
		return nil, err
	}

	h := &hooks{fat: fatStream, maxFiles: int(fatStream.Size() / fatEntryLen)}
	arc := ga.NewArchive(stream, firstFileOffset, 0, h)

	lenArchive := stream.Size()

	if _, err := fatStream.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var entries []*ga.Entry
	var off int64
	for i := 0; i < h.maxFiles; i++ {
		var size, typ uint16
		if err := binary.Read(fatStream, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if err := binary.Read(fatStream, binary.LittleEndian, &typ); err != nil {
			return nil, err
		}
		if _, err := fatStream.Seek(4, io.SeekCurrent); err != nil {
			return nil, err
		}
		if size == 0 {
			continue
		}

		e := &ga.Entry{
			Index:      i,
			Offset:     off,
			HeaderLen:  0,
			StoredSize: int64(size),
			RealSize:   int64(size),
			Name:       fmt.Sprintf("file%04d", i),
			Type:       typeToName(typ),
			Attrs:      ga.AttrDefault,
			Valid:      true,
		}
		off += e.StoredSize
		if e.Offset+e.StoredSize > lenArchive {
			return nil, &ga.CorruptFATError{Msg: "archive has been truncated or FAT is corrupt"}
		}
		entries = append(entries, e)
		h.numFiles++
	}
	arc.Seed(entries)

	return arc, nil
}
