// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package stellar7

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

type resEntry struct {
	name   string
	data   string
	folder bool
}

func buildRES(entries []resEntry) *memBacking {
	var buf []byte
	for _, e := range entries {
		rec := make([]byte, fatEntryLen)
		copy(rec, e.name)
		v := uint32(len(e.data))
		if e.folder {
			v |= folderBit
		}
		binary.LittleEndian.PutUint32(rec[4:], v)
		buf = append(buf, rec...)
		buf = append(buf, []byte(e.data)...)
	}
	return &memBacking{buf: buf}
}

func TestIdentifyWalksFlatHeaderRun(t *testing.T) {
	back := buildRES([]resEntry{{"PIC1", "abcd", false}})
	cert, err := identify(back, int64(len(back.buf)))
	require.NoError(t, err)
	require.Equal(t, ga.DefinitelyYes, cert)
}

func TestOpenArchiveParsesFolderBit(t *testing.T) {
	back := buildRES([]resEntry{
		{"PIC1", "abcd", false},
		{"DIR1", "xyzw", true},
	})

	arc, err := openArchive(back, nil)
	require.NoError(t, err)

	files := arc.Files()
	require.Len(t, files, 2)
	require.Equal(t, "PIC1", files[0].Name)
	require.False(t, files[0].Attrs.Has(ga.AttrFolder))
	require.Equal(t, "DIR1", files[1].Name)
	require.True(t, files[1].Attrs.Has(ga.AttrFolder))
}

func TestInsertShiftsEmbeddedHeaderOfLaterEntry(t *testing.T) {
	back := buildRES([]resEntry{{"PIC1", "abcd", false}})

	arc, err := openArchive(back, nil)
	require.NoError(t, err)

	h1, err := arc.Find("PIC1")
	require.NoError(t, err)

	newHandle, err := arc.Insert(h1, "PIC0", 2, ga.FileTypeGeneric, ga.AttrDefault)
	require.NoError(t, err)
	sub, err := arc.Open(newHandle, false)
	require.NoError(t, err)
	_, err = sub.Write([]byte("zz"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	require.NoError(t, arc.Flush())

	reopened, err := openArchive(back, nil)
	require.NoError(t, err)
	files := reopened.Files()
	require.Len(t, files, 2)
	require.Equal(t, "PIC0", files[0].Name)
	require.Equal(t, int64(2), files[0].StoredSize)
	require.Equal(t, "PIC1", files[1].Name)
	require.Equal(t, int64(4), files[1].StoredSize)

	h, err := reopened.Find("PIC1")
	require.NoError(t, err)
	sub2, err := reopened.Open(h, false)
	require.NoError(t, err)
	data, err := io.ReadAll(sub2)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(data))
	require.NoError(t, sub2.Close())
}

func TestOpenFolderRecursesIntoNestedArchive(t *testing.T) {
	nested := buildRES([]resEntry{{"SUB1", "inner", false}})

	back := buildRES([]resEntry{
		{"DIR1", string(nested.buf), true},
	})

	arc, err := openArchive(back, nil)
	require.NoError(t, err)

	h, err := arc.Find("DIR1")
	require.NoError(t, err)

	folder, err := OpenFolder(arc, h)
	require.NoError(t, err)

	innerFiles := folder.Files()
	require.Len(t, innerFiles, 1)
	require.Equal(t, "SUB1", innerFiles[0].Name)

	innerHandle, err := folder.Find("SUB1")
	require.NoError(t, err)
	sub, err := folder.Open(innerHandle, false)
	require.NoError(t, err)
	data, err := io.ReadAll(sub)
	require.NoError(t, err)
	require.Equal(t, "inner", string(data))
	require.NoError(t, sub.Close())
}

func TestOpenFolderRejectsNonFolderEntry(t *testing.T) {
	back := buildRES([]resEntry{{"PIC1", "abcd", false}})

	arc, err := openArchive(back, nil)
	require.NoError(t, err)

	h, err := arc.Find("PIC1")
	require.NoError(t, err)

	_, err = OpenFolder(arc, h)
	var notSupported *ga.NotSupportedError
	require.ErrorAs(t, err, &notSupported)
}
