// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gd

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

// buildGD returns a data stream (back-to-back file bytes) and a
// supplemental FAT stream with the given slots, vacant ones trailing,
// matching how a real Doofus .exe slice lays its fixed-size table out.
func buildGD(slots []struct {
	size uint16
	typ  uint16
}, data string) (*memBacking, *memBacking) {
	fat := make([]byte, 0, len(slots)*fatEntryLen)
	for _, s := range slots {
		rec := make([]byte, fatEntryLen)
		binary.LittleEndian.PutUint16(rec[0:], s.size)
		binary.LittleEndian.PutUint16(rec[2:], s.typ)
		fat = append(fat, rec...)
	}
	return &memBacking{buf: []byte(data)}, &memBacking{buf: fat}
}

func TestOpenArchiveSkipsVacantSlotsAndSynthesizesNames(t *testing.T) {
	back, fat := buildGD([]struct {
		size uint16
		typ  uint16
	}{
		{4, 0x1636},
		{2, typeMusicTBSA},
		{0, 0},
		{0, 0},
	}, "abcdxy")

	arc, err := openArchive(back, map[string]ga.BackingStream{"FAT": fat})
	require.NoError(t, err)

	files := arc.Files()
	require.Len(t, files, 2)
	require.Equal(t, "file0000", files[0].Name)
	require.Equal(t, "unknown/doofus-1636", files[0].Type)
	require.Equal(t, int64(4), files[0].StoredSize)
	require.Equal(t, "file0001", files[1].Name)
	require.Equal(t, "music/tbsa", files[1].Type)

	h, err := arc.Find("file0001")
	require.NoError(t, err)
	sub, err := arc.Open(h, false)
	require.NoError(t, err)
	d, err := io.ReadAll(sub)
	require.NoError(t, err)
	require.Equal(t, "xy", string(d))
	require.NoError(t, sub.Close())
}

func TestOpenArchiveRequiresSupplementalFAT(t *testing.T) {
	back := &memBacking{buf: []byte("abcd")}
	_, err := openArchive(back, nil)
	var notSupported *ga.NotSupportedError
	require.ErrorAs(t, err, &notSupported)
}

func TestInsertKeepsFixedFATLengthAndSynthesizesNewName(t *testing.T) {
	back, fat := buildGD([]struct {
		size uint16
		typ  uint16
	}{
		{4, 0x1636},
		{2, typeMusicTBSA},
		{0, 0},
		{0, 0},
	}, "abcdxy")

	arc, err := openArchive(back, map[string]ga.BackingStream{"FAT": fat})
	require.NoError(t, err)

	h1, err := arc.Find("file0001")
	require.NoError(t, err)

	newHandle, err := arc.Insert(h1, "unused-name", 3, ga.FileTypeGeneric, ga.AttrDefault)
	require.NoError(t, err)
	sub, err := arc.Open(newHandle, false)
	require.NoError(t, err)
	_, err = sub.Write([]byte("zzz"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	require.NoError(t, arc.Flush())

	reopened, err := openArchive(back, map[string]ga.BackingStream{"FAT": fat})
	require.NoError(t, err)
	files := reopened.Files()
	require.Len(t, files, 3)
	require.Equal(t, "file0000", files[0].Name)
	require.Equal(t, int64(4), files[0].StoredSize)
	require.Equal(t, "file0001", files[1].Name)
	require.Equal(t, int64(3), files[1].StoredSize)
	require.Equal(t, "file0002", files[2].Name)
	require.Equal(t, int64(2), files[2].StoredSize)
	require.Equal(t, "music/tbsa", files[2].Type)

	h, err := reopened.Find("file0002")
	require.NoError(t, err)
	sub2, err := reopened.Open(h, false)
	require.NoError(t, err)
	d, err := io.ReadAll(sub2)
	require.NoError(t, err)
	require.Equal(t, "xy", string(d))
	require.NoError(t, sub2.Close())
}

func TestInsertRejectsWhenFATIsFull(t *testing.T) {
	back, fat := buildGD([]struct {
		size uint16
		typ  uint16
	}{
		{4, 0x1636},
		{2, typeMusicTBSA},
	}, "abcdxy")

	arc, err := openArchive(back, map[string]ga.BackingStream{"FAT": fat})
	require.NoError(t, err)

	_, err = arc.Insert(ga.Handle{}, "unused-name", 1, ga.FileTypeGeneric, ga.AttrDefault)
	var formatLimit *ga.FormatLimitError
	require.ErrorAs(t, err, &formatLimit)
}

func TestUpdateFileNameIsNotSupported(t *testing.T) {
	back, fat := buildGD([]struct {
		size uint16
		typ  uint16
	}{{4, 0x1636}}, "abcd")

	arc, err := openArchive(back, map[string]ga.BackingStream{"FAT": fat})
	require.NoError(t, err)

	h, err := arc.Find("file0000")
	require.NoError(t, err)
	err = arc.Rename(h, "new-name")
	var notSupported *ga.NotSupportedError
	require.ErrorAs(t, err, &notSupported)
}
