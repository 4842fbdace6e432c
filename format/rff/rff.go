// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package rff implements the Monolith Blood RFF archive strategy: a
// 32-byte header, file data, and a trailing FAT whose records are kept
// decrypted in a private in-memory buffer and re-encrypted on flush when
// the archive is the 0x301 (selectable encryption) version.
package rff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	ga "github.com/camoto-go/gamearchive"
	"github.com/camoto-go/gamearchive/gafilter"
	"github.com/camoto-go/gamearchive/gastream"
)

const (
	headerLen          = 32
	fatOffsetOffset     = 8
	fileCountOffset     = 12
	fatEntryLen         = 48
	maxNameLen          = 12 // 8.3 plus the dot
	safetyMaxFileCount  = 8192
	fileEncryptedFlag   = 0x10

	versionNoEncryption  = 0x0200
	versionWithEncryption = 0x0301
)

var versionNames = []string{"v2.0 - no encryption", "v3.1 - selectable encryption"}

func init() {
	ga.DefaultRegistry().Register(ga.Factory{
		Info: ga.FormatInfo{
			Code:         "rff-blood",
			FriendlyName: "Monolith Resource File Format",
			Extensions:   []string{"rff"},
			Games:        []string{"Blood"},
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
	if string(sig) == "RFF\x1a" {
		return ga.DefinitelyYes, nil
	}
	return ga.DefinitelyNo, nil
}

// memBuf is a small growable in-memory backing store, used to hold the
// RFF FAT plaintext the way the decrypted FAT never touches the main
// archive stream until Flush re-encrypts and writes it out in one pass.
type memBuf struct {
	data []byte
	pos  int64
}

func (m *memBuf) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memBuf) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[m.pos:end], p)
	m.pos += int64(n)
	return n, nil
}

func (m *memBuf) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.data)) + offset
	}
	if target < 0 {
		return 0, gastream.ErrOutOfBounds
	}
	m.pos = target
	return m.pos, nil
}

func (m *memBuf) Truncate(n int64) error {
	if n <= int64(len(m.data)) {
		m.data = m.data[:n]
		return nil
	}
	grown := make([]byte, n)
	copy(grown, m.data)
	m.data = grown
	return nil
}

type hooks struct {
	ga.BaseHooks
	fat            *gastream.Stream
	version        uint16
	pendingVersion uint16
	modifiedFAT    bool
}

func (h *hooks) slot(e *ga.Entry) int64 { return int64(e.Index) * fatEntryLen }

func (h *hooks) UpdateFileName(e *ga.Entry, name string) error {
	base, ext, err := ga.Split83(strings.ToUpper(name))
	if err != nil {
		return err
	}
	if _, err := h.fat.Seek(h.slot(e)+33, io.SeekStart); err != nil {
		return err
	}
	if _, err := h.fat.Write(padField(ext, 3)); err != nil {
		return err
	}
	if _, err := h.fat.Write(padField(base, 8)); err != nil {
		return err
	}
	h.modifiedFAT = true
	return nil
}

func (h *hooks) UpdateFileOffset(e *ga.Entry, _ int64) error {
	if _, err := h.fat.Seek(h.slot(e)+16, io.SeekStart); err != nil {
		return err
	}
	h.modifiedFAT = true
	return binary.Write(h.fat, binary.LittleEndian, uint32(e.Offset))
}

func (h *hooks) UpdateFileSize(e *ga.Entry, _ int64) error {
	if _, err := h.fat.Seek(h.slot(e)+20, io.SeekStart); err != nil {
		return err
	}
	h.modifiedFAT = true
	return binary.Write(h.fat, binary.LittleEndian, uint32(e.StoredSize))
}

func (h *hooks) PreInsert(before, newEntry *ga.Entry) error {
	newEntry.HeaderLen = 0
	var flags byte
	if newEntry.Attrs.Has(ga.AttrEncrypted) {
		if h.version >= versionWithEncryption {
			newEntry.Filter = "xor-blood"
			flags |= fileEncryptedFlag
		} else {
			newEntry.Attrs &^= ga.AttrEncrypted
		}
	}

	base, ext, err := ga.Split83(strings.ToUpper(newEntry.Name))
	if err != nil {
		return err
	}

	if _, err := h.fat.Seek(h.slot(newEntry), io.SeekStart); err != nil {
		return err
	}
	if err := h.fat.Insert(fatEntryLen); err != nil {
		return err
	}
	if _, err := h.fat.Write(make([]byte, 16)); err != nil { // unknown
		return err
	}
	if err := binary.Write(h.fat, binary.LittleEndian, uint32(newEntry.Offset)); err != nil {
		return err
	}
	if err := binary.Write(h.fat, binary.LittleEndian, uint32(newEntry.StoredSize)); err != nil {
		return err
	}
	if err := binary.Write(h.fat, binary.LittleEndian, uint32(0)); err != nil { // unknown2
		return err
	}
	if err := binary.Write(h.fat, binary.LittleEndian, uint32(0)); err != nil { // last modified
		return err
	}
	if _, err := h.fat.Write([]byte{flags}); err != nil {
		return err
	}
	if _, err := h.fat.Write(padField(ext, 3)); err != nil {
		return err
	}
	if _, err := h.fat.Write(padField(base, 8)); err != nil {
		return err
	}
	if err := binary.Write(h.fat, binary.LittleEndian, uint32(0)); err != nil { // unknown3
		return err
	}

	h.modifiedFAT = true
	return nil
}

func (h *hooks) PostInsert(*ga.Entry) error {
	return h.writeFileCount(h.Archive.EntryCount())
}

func (h *hooks) PreRemove(e *ga.Entry) error {
	if _, err := h.fat.Seek(h.slot(e), io.SeekStart); err != nil {
		return err
	}
	h.modifiedFAT = true
	return h.fat.Remove(fatEntryLen)
}

func (h *hooks) PostRemove(*ga.Entry) error {
	return h.writeFileCount(h.Archive.EntryCount())
}

func (h *hooks) writeFileCount(n int) error {
	s := h.Archive.Stream()
	if _, err := s.Seek(fileCountOffset, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(s, binary.LittleEndian, uint32(n))
}

func (h *hooks) Attribute(i int, v string) error {
	if i != 0 {
		return ga.ErrUnknownAttribute
	}
	var newVersion uint16
	switch v {
	case versionNames[0]:
		newVersion = versionNoEncryption
	case versionNames[1]:
		newVersion = versionWithEncryption
	default:
		return &ga.InvalidNameError{Msg: "unknown RFF version " + v}
	}
	if newVersion < versionWithEncryption {
		for _, info := range h.Archive.Files() {
			if info.Attrs.Has(ga.AttrEncrypted) {
				return &ga.NotSupportedError{Msg: "cannot change to this RFF version while the archive contains encrypted files"}
			}
		}
	}
	h.pendingVersion = newVersion
	return nil
}

func (h *hooks) SupportedAttributes() ga.EntryAttr {
	return ga.AttrEncrypted | ga.AttrDefault
}

// Flush commits the version header field (if changed) and the private
// FAT buffer (if any record or the version changed), growing or shrinking the region
// following the last file's data so the archive ends immediately after
// the FAT, then re-encrypting the whole FAT in one pass for 0x301
// archives.
func (h *hooks) Flush() error {
	attrs := h.Archive.Attributes()
	s := h.Archive.Stream()

	if len(attrs) > 0 && attrs[0].Changed() {
		h.version = h.pendingVersion
		if _, err := s.Seek(4, io.SeekStart); err != nil {
			return err
		}
		if err := binary.Write(s, binary.LittleEndian, h.version); err != nil {
			return err
		}
		if err := binary.Write(s, binary.LittleEndian, uint16(0)); err != nil {
			return err
		}
		h.modifiedFAT = true
	}

	if !h.modifiedFAT {
		return nil
	}

	files := h.Archive.Files()
	var offFAT int64
	if len(files) == 0 {
		offFAT = headerLen
	} else {
		last := files[len(files)-1]
		offFAT = last.Offset + last.StoredSize
	}

	if _, err := s.Seek(fatOffsetOffset, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(offFAT)); err != nil {
		return err
	}

	lenArchive := s.Size()
	fatLen := int64(len(files)) * fatEntryLen
	offEndFAT := offFAT + fatLen
	lenDelta := offEndFAT - lenArchive

	if lenDelta > 0 {
		if _, err := s.Seek(offFAT, io.SeekStart); err != nil {
			return err
		}
		if err := s.Insert(lenDelta); err != nil {
			return err
		}
	} else if lenDelta < 0 {
		if _, err := s.Seek(offFAT, io.SeekStart); err != nil {
			return err
		}
		if err := s.Remove(-lenDelta); err != nil {
			return err
		}
	}

	if _, err := h.fat.Seek(0, io.SeekStart); err != nil {
		return err
	}
	plain := make([]byte, fatLen)
	if _, err := io.ReadFull(h.fat, plain); err != nil {
		return err
	}

	out := plain
	if h.version >= versionWithEncryption {
		enc, err := gafilter.EncodeNamed("xor-blood", bytes.NewReader(plain),
			gafilter.Params{"key": byte(offFAT & 0xFF)}, nil)
		if err != nil {
			return err
		}
		out, err = io.ReadAll(enc)
		if err != nil {
			return err
		}
	}

	if _, err := s.Seek(offFAT, io.SeekStart); err != nil {
		return err
	}
	if _, err := s.Write(out); err != nil {
		return err
	}

	if _, err := s.Seek(fatOffsetOffset, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(s, binary.LittleEndian, uint32(offFAT)); err != nil {
		return err
	}

	h.modifiedFAT = false
	return nil
}

func padField(s string, n int) []byte {
	buf := make([]byte, n)
	copy(buf, s)
	return buf
}

func openArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	stream, err := gastream.New(rw, rw.Truncate)
	if err != nil {
		return nil, err
	}

	if _, err := stream.Seek(4, io.SeekStart); err != nil {
		return nil, err
	}
	var version, unknown1 uint16
	var offFAT, numFiles uint32
	if err := binary.Read(stream, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if err := binary.Read(stream, binary.LittleEndian, &unknown1); err != nil {
		return nil, err
	}
	if err := binary.Read(stream, binary.LittleEndian, &offFAT); err != nil {
		return nil, err
	}
	if err := binary.Read(stream, binary.LittleEndian, &numFiles); err != nil {
		return nil, err
	}
	if numFiles >= safetyMaxFileCount {
		return nil, &ga.CorruptFATError{Msg: "too many files or corrupted archive"}
	}
	if version != versionNoEncryption && version != versionWithEncryption {
		return nil, &ga.CorruptFATError{Msg: fmt.Sprintf("unknown RFF version 0x%x", version)}
	}

	rawFAT := make([]byte, int64(numFiles)*fatEntryLen)
	if _, err := stream.Seek(int64(offFAT), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(stream, rawFAT); err != nil {
		return nil, err
	}

	plain := rawFAT
	if version >= versionWithEncryption {
		dec, err := gafilter.DecodeNamed("xor-blood", bytes.NewReader(rawFAT), gafilter.Params{"key": byte(offFAT & 0xFF)})
		if err != nil {
			return nil, err
		}
		plain, err = io.ReadAll(dec)
		if err != nil {
			return nil, err
		}
	}

	mb := &memBuf{}
	fat, err := gastream.New(mb, mb.Truncate)
	if err != nil {
		return nil, err
	}
	if len(plain) > 0 {
		if err := fat.Insert(int64(len(plain))); err != nil {
			return nil, err
		}
		if _, err := fat.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := fat.Write(plain); err != nil {
			return nil, err
		}
	}

	h := &hooks{fat: fat, version: version}
	arc := ga.NewArchive(stream, headerLen, maxNameLen, h)

	if _, err := fat.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	entries := make([]*ga.Entry, 0, numFiles)
	for i := 0; i < int(numFiles); i++ {
		unk := make([]byte, 16)
		if _, err := io.ReadFull(fat, unk); err != nil {
			return nil, err
		}
		var off, size, unknown2, lastModified uint32
		if err := binary.Read(fat, binary.LittleEndian, &off); err != nil {
			return nil, err
		}
		if err := binary.Read(fat, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if err := binary.Read(fat, binary.LittleEndian, &unknown2); err != nil {
			return nil, err
		}
		if err := binary.Read(fat, binary.LittleEndian, &lastModified); err != nil {
			return nil, err
		}
		var flags [1]byte
		if _, err := io.ReadFull(fat, flags[:]); err != nil {
			return nil, err
		}
		extBuf := make([]byte, 3)
		baseBuf := make([]byte, 8)
		if _, err := io.ReadFull(fat, extBuf); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(fat, baseBuf); err != nil {
			return nil, err
		}
		var unknown3 uint32
		if err := binary.Read(fat, binary.LittleEndian, &unknown3); err != nil {
			return nil, err
		}

		e := &ga.Entry{
			Index:      i,
			Offset:     int64(off),
			StoredSize: int64(size),
			RealSize:   int64(size),
			Name:       ga.Join83(string(baseBuf), string(extBuf)),
			Type:       ga.FileTypeGeneric,
			Attrs:      ga.AttrDefault,
			Valid:      true,
		}
		if flags[0]&fileEncryptedFlag != 0 {
			e.Attrs |= ga.AttrEncrypted
			e.Filter = "xor-blood"
		}
		entries = append(entries, e)
	}
	arc.Seed(entries)

	verValue := versionNames[0]
	if version == versionWithEncryption {
		verValue = versionNames[1]
	}
	arc.SetAttributes([]*ga.Attribute{
		ga.NewEnumAttribute("Version", "File version", versionNames, verValue),
	})

	return arc, nil
}

func newArchive(rw ga.BackingStream, _ map[string]ga.BackingStream) (*ga.Archive, error) {
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	header := make([]byte, headerLen)
	copy(header, "RFF\x1a")
	binary.LittleEndian.PutUint16(header[4:], versionNoEncryption)
	binary.LittleEndian.PutUint32(header[8:], headerLen)
	if _, err := rw.Write(header); err != nil {
		return nil, err
	}
	return openArchive(rw, nil)
}
