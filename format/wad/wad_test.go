// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package wad

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	ga "github.com/camoto-go/gamearchive"
)

type memBacking struct {
	buf []byte
	pos int64
}

func (m *memBacking) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.buf)) + offset
	}
	m.pos = target
	return m.pos, nil
}

func (m *memBacking) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memBacking) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *memBacking) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memBacking) Truncate(n int64) error {
	if n <= int64(len(m.buf)) {
		m.buf = m.buf[:n]
		return nil
	}
	grown := make([]byte, n)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

// buildWAD lays out header + FAT + data, the convention this strategy's
// PreInsert/PreRemove hooks maintain: the FAT sits immediately after the
// header and grows/shrinks there, with the data region starting wherever
// the FAT currently ends.
func buildWAD(t *testing.T, entries []struct {
	name string
	data string
}) *memBacking {
	t.Helper()
	fatOff := uint32(headerLen)

	buf := make([]byte, headerLen)
	copy(buf, "IWAD")
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(entries)))
	binary.LittleEndian.PutUint32(buf[8:], fatOff)

	off := uint32(headerLen) + uint32(len(entries))*fatEntryLen
	var data []byte
	var fat []byte
	for _, e := range entries {
		data = append(data, e.data...)
		rec := make([]byte, fatEntryLen)
		binary.LittleEndian.PutUint32(rec[0:], off)
		binary.LittleEndian.PutUint32(rec[4:], uint32(len(e.data)))
		copy(rec[8:], e.name)
		fat = append(fat, rec...)
		off += uint32(len(e.data))
	}

	buf = append(buf, fat...)
	buf = append(buf, data...)
	return &memBacking{buf: buf}
}

func TestIdentifyRecognizesIWADSignature(t *testing.T) {
	back := buildWAD(t, []struct {
		name string
		data string
	}{{"LUMP1", "abcd"}})

	cert, err := identify(back, int64(len(back.buf)))
	require.NoError(t, err)
	require.Equal(t, ga.DefinitelyYes, cert)
}

func TestOpenArchiveParsesEntries(t *testing.T) {
	back := buildWAD(t, []struct {
		name string
		data string
	}{
		{"LUMP1", "abcd"},
		{"LUMP2", "xy"},
	})

	arc, err := openArchive(back, nil)
	require.NoError(t, err)

	files := arc.Files()
	require.Len(t, files, 2)
	require.Equal(t, "LUMP1", files[0].Name)
	require.Equal(t, int64(4), files[0].StoredSize)
	require.Equal(t, "LUMP2", files[1].Name)

	h, err := arc.Find("LUMP1")
	require.NoError(t, err)
	sub, err := arc.Open(h, false)
	require.NoError(t, err)
	data, err := io.ReadAll(sub)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(data))
	require.NoError(t, sub.Close())
}

func TestInsertGrowsFATAndShiftsData(t *testing.T) {
	back := buildWAD(t, []struct {
		name string
		data string
	}{{"LUMP1", "abcd"}})

	arc, err := openArchive(back, nil)
	require.NoError(t, err)

	h1, err := arc.Find("LUMP1")
	require.NoError(t, err)

	newHandle, err := arc.Insert(h1, "LUMP0", 2, ga.FileTypeGeneric, ga.AttrDefault)
	require.NoError(t, err)
	sub, err := arc.Open(newHandle, false)
	require.NoError(t, err)
	_, err = sub.Write([]byte("zz"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	require.NoError(t, arc.Flush())

	files := arc.Files()
	require.Len(t, files, 2)
	require.Equal(t, "LUMP0", files[0].Name)
	require.Equal(t, "LUMP1", files[1].Name)

	reopened, err := openArchive(back, nil)
	require.NoError(t, err)
	reopenedFiles := reopened.Files()
	require.Len(t, reopenedFiles, 2)
	require.Equal(t, int64(2), reopenedFiles[0].StoredSize)
	require.Equal(t, int64(4), reopenedFiles[1].StoredSize)
}

func TestAttributeTracksIWADPWADFlag(t *testing.T) {
	back := buildWAD(t, []struct {
		name string
		data string
	}{{"LUMP1", "ab"}})

	arc, err := openArchive(back, nil)
	require.NoError(t, err)
	require.Equal(t, "IWAD", arc.Attributes()[0].Value)

	require.NoError(t, arc.SetAttribute(0, "PWAD"))
	require.NoError(t, arc.Flush())

	reopened, err := openArchive(back, nil)
	require.NoError(t, err)
	require.Equal(t, "PWAD", reopened.Attributes()[0].Value)
}
