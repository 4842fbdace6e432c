// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package epf implements the East Point Software EPFS archive strategy:
// an 11-byte header, file data, a free-text description, and a trailing
// FAT of 22-byte records whose offset field in the header tracks where
// the FAT currently begins.
package epf

import (
	"encoding/binary"
	"io"
	"strings"

	ga "github.com/camoto-go/gamearchive"
	"github.com/camoto-go/gamearchive/gastream"
)

const (
	headerLen         = 11
	fatOffsetPos      = 4
	fileCountPos      = 9
	nameFieldLen      = 13
	maxNameLen        = 12
	fatEntryLen       = 22
	compressedFlag    = 1
)

func init() {
	ga.DefaultRegistry().Register(ga.Factory{
		Info: ga.FormatInfo{
			Code:         "epf-lionking",
			FriendlyName: "East Point Software EPFS File",
			Extensions:   []string{"epf"},
			Games: []string{
				"Alien Breed Tower Assault", "Arcade Pool", "Asterix & Obelix",
				"Jungle Book, The", "Lion King, The", "Overdrive", "Project X",
				"Sensible Golf", "Smurfs, The", "Spirou", "Tin Tin in Tibet", "Universe",
			},
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
	if string(sig) == "EPFS" {
		return ga.DefinitelyYes, nil
	}
	return ga.DefinitelyNo, nil
}

type hooks struct {
	ga.BaseHooks
	offFAT int64
	tail   ga.TailBytes
}

func (h *hooks) recordSlot(e *ga.Entry) int64 { return h.offFAT + int64(e.Index)*fatEntryLen }

func padField(s string, n int) []byte {
	buf := make([]byte, n)
	copy(buf, s)
	return buf
}

func (h *hooks) UpdateFileName(e *ga.Entry, name string) error {
	if len(name) > maxNameLen {
		return &ga.InvalidNameError{Msg: "name exceeds 12 characters"}
	}
	s := h.Archive.Stream()
	if _, err := s.Seek(h.recordSlot(e), io.SeekStart); err != nil {
		return err
	}
	_, err := s.Write(padField(strings.ToUpper(name), nameFieldLen))
	return err
}

func (h *hooks) UpdateFileSize(e *ga.Entry, delta int64) error {
	s := h.Archive.Stream()
	h.offFAT += delta
	if _, err := s.Seek(h.recordSlot(e)+14, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(e.StoredSize)); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(e.RealSize)); err != nil {
		return err
	}
	return h.writeFATOffset()
}

func (h *hooks) PreInsert(before, newEntry *ga.Entry) error {
	if len(newEntry.Name) > maxNameLen {
		return &ga.InvalidNameError{Msg: "name exceeds 12 characters"}
	}
	newEntry.HeaderLen = 0
	if newEntry.Attrs.Has(ga.AttrCompressed) {
		newEntry.Filter = "lzw-epfs"
	}
	return nil
}

// PostInsert writes the new on-disk record only after the data region
// has already grown, since the FAT (which trails all file data) must be
// located using the post-insert offFAT, not the pre-insert one.
func (h *hooks) PostInsert(newEntry *ga.Entry) error {
	h.offFAT += newEntry.StoredSize

	s := h.Archive.Stream()
	slot := h.recordSlot(newEntry)
	if _, err := s.Seek(slot, io.SeekStart); err != nil {
		return err
	}
	if err := s.Insert(fatEntryLen); err != nil {
		return err
	}

	flags := byte(0)
	if newEntry.Attrs.Has(ga.AttrCompressed) {
		flags = compressedFlag
	}
	if _, err := s.Write(padField(strings.ToUpper(newEntry.Name), nameFieldLen)); err != nil {
		return err
	}
	if _, err := s.Write([]byte{flags}); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(newEntry.StoredSize)); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(newEntry.RealSize)); err != nil {
		return err
	}

	if err := h.writeFATOffset(); err != nil {
		return err
	}
	return h.writeFileCount(h.Archive.EntryCount())
}

func (h *hooks) PreRemove(e *ga.Entry) error {
	s := h.Archive.Stream()
	if _, err := s.Seek(h.recordSlot(e), io.SeekStart); err != nil {
		return err
	}
	if err := s.Remove(fatEntryLen); err != nil {
		return err
	}
	h.offFAT -= e.StoredSize
	if err := h.writeFATOffset(); err != nil {
		return err
	}
	return h.writeFileCount(h.Archive.EntryCount() - 1)
}

func (h *hooks) writeFATOffset() error {
	s := h.Archive.Stream()
	if _, err := s.Seek(fatOffsetPos, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(s, binary.LittleEndian, uint32(h.offFAT))
}

func (h *hooks) writeFileCount(n int) error {
	s := h.Archive.Stream()
	if _, err := s.Seek(fileCountPos, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(s, binary.LittleEndian, uint16(n))
}

func (h *hooks) Attribute(i int, _ string) error {
	if i != 0 {
		return ga.ErrUnknownAttribute
	}
	return nil
}

func (h *hooks) SupportedAttributes() ga.EntryAttr { return ga.AttrCompressed }

// Flush resizes the description region to match the Description
// attribute's current value, then restores the unspecified tail that
// may follow the FAT to EOF, since neither region is tracked per-entry
// by the generic shift machinery.
func (h *hooks) Flush() error {
	s := h.Archive.Stream()
	attrs := h.Archive.Attributes()

	if len(attrs) > 0 && attrs[0].Changed() {
		files := h.Archive.Files()
		offDesc := int64(headerLen)
		if len(files) > 0 {
			last := files[len(files)-1]
			offDesc = last.Offset + last.StoredSize
		}
		sizeDesc := h.offFAT - offDesc
		newDesc := attrs[0].Value
		delta := int64(len(newDesc)) - sizeDesc

		if _, err := s.Seek(offDesc, io.SeekStart); err != nil {
			return err
		}
		if delta > 0 {
			if err := s.Insert(delta); err != nil {
				return err
			}
		} else if delta < 0 {
			if err := s.Remove(-delta); err != nil {
				return err
			}
		}
		if _, err := s.Seek(offDesc, io.SeekStart); err != nil {
			return err
		}
		if _, err := s.Write([]byte(newDesc)); err != nil {
			return err
		}
		h.offFAT += delta
		if err := h.writeFATOffset(); err != nil {
			return err
		}
	}

	if h.tail.Len() > 0 {
		fatEnd := h.offFAT + int64(h.Archive.EntryCount())*fatEntryLen
		cur := s.Size() - fatEnd
		delta := h.tail.Len() - cur
		if _, err := s.Seek(fatEnd, io.SeekStart); err != nil {
			return err
		}
		if delta > 0 {
			if err := s.Insert(delta); err != nil {
				return err
			}
		} else if delta < 0 {
			if err := s.Remove(-delta); err != nil {
				return err
			}
		}
		if _, err := s.Seek(fatEnd, io.SeekStart); err != nil {
			return err
		}
		if _, err := s.Write(h.tail.Data); err != nil {
			return err
		}
	}
	return nil
}

func openArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	stream, err := gastream.New(rw, rw.Truncate)
	if err != nil {
		return nil, err
	}

	if _, err := stream.Seek(4, io.SeekStart); err != nil {
		return nil, err
	}
	var offFAT uint32
	var unknown uint8
	var numFiles uint16
	if err := binary.Read(stream, binary.LittleEndian, &offFAT); err != nil {
		return nil, err
	}
	if err := binary.Read(stream, binary.LittleEndian, &unknown); err != nil {
		return nil, err
	}
	if err := binary.Read(stream, binary.LittleEndian, &numFiles); err != nil {
		return nil, err
	}

	lenArchive := stream.Size()
	if int64(offFAT) > lenArchive || int64(offFAT)+int64(numFiles)*fatEntryLen > lenArchive {
		return nil, &ga.CorruptFATError{Msg: "header corrupted or file truncated"}
	}

	h := &hooks{offFAT: int64(offFAT)}
	arc := ga.NewArchive(stream, headerLen, maxNameLen, h)

	if _, err := stream.Seek(int64(offFAT), io.SeekStart); err != nil {
		return nil, err
	}
	entries := make([]*ga.Entry, 0, numFiles)
	offNext := int64(headerLen)
	for i := 0; i < int(numFiles); i++ {
		nameBuf := make([]byte, nameFieldLen)
		if _, err := io.ReadFull(stream, nameBuf); err != nil {
			return nil, err
		}
		var flags uint8
		var storedSize, realSize uint32
		if err := binary.Read(stream, binary.LittleEndian, &flags); err != nil {
			return nil, err
		}
		if err := binary.Read(stream, binary.LittleEndian, &storedSize); err != nil {
			return nil, err
		}
		if err := binary.Read(stream, binary.LittleEndian, &realSize); err != nil {
			return nil, err
		}

		e := &ga.Entry{
			Index:      i,
			Offset:     offNext,
			HeaderLen:  0,
			StoredSize: int64(storedSize),
			RealSize:   int64(realSize),
			Name:       strings.TrimRight(string(nameBuf), "\x00"),
			Type:       ga.FileTypeGeneric,
			Attrs:      ga.AttrDefault,
			Valid:      true,
		}
		if flags&compressedFlag != 0 {
			e.Attrs |= ga.AttrCompressed
			e.Filter = "lzw-epfs"
		}
		offNext += e.StoredSize
		entries = append(entries, e)
	}
	arc.Seed(entries)

	offDesc := int64(headerLen)
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		offDesc = last.Offset + last.StoredSize
	}
	sizeDesc := int64(offFAT) - offDesc
	desc := ""
	if sizeDesc > 0 {
		if _, err := stream.Seek(offDesc, io.SeekStart); err != nil {
			return nil, err
		}
		buf := make([]byte, sizeDesc)
		if _, err := io.ReadFull(stream, buf); err != nil {
			return nil, err
		}
		desc = string(buf)
	}
	arc.SetAttributes([]*ga.Attribute{ga.NewTextAttribute("Description", "Archive description", desc)})

	fatEnd := int64(offFAT) + int64(numFiles)*fatEntryLen
	if fatEnd < lenArchive {
		if _, err := stream.Seek(fatEnd, io.SeekStart); err != nil {
			return nil, err
		}
		tailBuf := make([]byte, lenArchive-fatEnd)
		if _, err := io.ReadFull(stream, tailBuf); err != nil {
			return nil, err
		}
		h.tail.Set(tailBuf)
	}

	return arc, nil
}

func newArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	header := make([]byte, headerLen)
	copy(header, "EPFS")
	binary.LittleEndian.PutUint32(header[4:], headerLen)
	if _, err := rw.Write(header); err != nil {
		return nil, err
	}
	return openArchive(rw, nil)
}
