// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/camoto-go/gamearchive/gastream"
)

// memBacking is a minimal BackingStream over a []byte, used to exercise
// the generic engine without pulling in any format package.
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

// flatHooks is a no-header, no-FAT-on-disk test strategy: files just sit
// back to back with no metadata at all, enough to exercise Insert/Remove/
// Resize/Move/shiftFiles without a real format's bookkeeping getting in
// the way of the assertions.
type flatHooks struct {
	BaseHooks
}

func (flatHooks) SupportedAttributes() EntryAttr { return AttrDefault | AttrFolder }

// UpdateFileName accepts every rename: flatHooks keeps no names on disk.
func (flatHooks) UpdateFileName(*Entry, string) error { return nil }

func newTestArchive(t *testing.T, initial []byte) (*Archive, *memBacking) {
	t.Helper()
	back := &memBacking{buf: append([]byte(nil), initial...)}
	stream, err := gastream.New(back, back.Truncate)
	require.NoError(t, err)
	arc := NewArchive(stream, 0, 0, &flatHooks{})
	return arc, back
}

func TestInsertAppendsAtEnd(t *testing.T) {
	arc, back := newTestArchive(t, nil)

	h, err := arc.Insert(Handle{}, "one.dat", 4, FileTypeGeneric, AttrDefault)
	require.NoError(t, err)
	sub, err := arc.Open(h, false)
	require.NoError(t, err)
	_, err = sub.Write([]byte("AAAA"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, arc.Flush())
	require.Equal(t, "AAAA", string(back.buf))

	files := arc.Files()
	require.Len(t, files, 1)
	require.Equal(t, "one.dat", files[0].Name)
	require.Equal(t, int64(4), files[0].StoredSize)
}

func TestInsertBeforeShiftsLaterEntries(t *testing.T) {
	arc, back := newTestArchive(t, nil)

	h1, err := arc.Insert(Handle{}, "first.dat", 3, FileTypeGeneric, AttrDefault)
	require.NoError(t, err)
	sub1, _ := arc.Open(h1, false)
	_, _ = sub1.Write([]byte("111"))
	require.NoError(t, sub1.Close())

	h2, err := arc.Insert(h1, "second.dat", 2, FileTypeGeneric, AttrDefault)
	require.NoError(t, err)
	sub2, _ := arc.Open(h2, false)
	_, _ = sub2.Write([]byte("22"))
	require.NoError(t, sub2.Close())

	require.NoError(t, arc.Flush())
	require.Equal(t, "22111", string(back.buf))

	files := arc.Files()
	require.Len(t, files, 2)
	require.Equal(t, "second.dat", files[0].Name)
	require.Equal(t, int64(0), files[0].Offset)
	require.Equal(t, "first.dat", files[1].Name)
	require.Equal(t, int64(2), files[1].Offset)
}

func TestRemoveShrinksArchiveAndShiftsFollowing(t *testing.T) {
	arc, back := newTestArchive(t, nil)

	h1, _ := arc.Insert(Handle{}, "a.dat", 2, FileTypeGeneric, AttrDefault)
	sa, _ := arc.Open(h1, false)
	_, _ = sa.Write([]byte("AA"))
	require.NoError(t, sa.Close())

	h2, _ := arc.Insert(Handle{}, "b.dat", 3, FileTypeGeneric, AttrDefault)
	sb, _ := arc.Open(h2, false)
	_, _ = sb.Write([]byte("BBB"))
	require.NoError(t, sb.Close())

	require.NoError(t, arc.Remove(h1))
	require.NoError(t, arc.Flush())

	require.Equal(t, "BBB", string(back.buf))
	files := arc.Files()
	require.Len(t, files, 1)
	require.Equal(t, "b.dat", files[0].Name)
	require.Equal(t, int64(0), files[0].Offset)
	require.False(t, h1.Valid())
}

func TestRenameValidatesNameRules(t *testing.T) {
	arc, _ := newTestArchive(t, nil)
	h, _ := arc.Insert(Handle{}, "a.dat", 1, FileTypeGeneric, AttrDefault)

	require.NoError(t, arc.Rename(h, "b.dat"))
	require.Equal(t, "b.dat", arc.Files()[0].Name)

	err := arc.Rename(h, "has/slash")
	var invalidName *InvalidNameError
	require.ErrorAs(t, err, &invalidName)
}

func TestResizeGrowsAndShiftsLaterEntries(t *testing.T) {
	arc, back := newTestArchive(t, nil)

	h1, _ := arc.Insert(Handle{}, "a.dat", 2, FileTypeGeneric, AttrDefault)
	sa, _ := arc.Open(h1, false)
	_, _ = sa.Write([]byte("AA"))
	require.NoError(t, sa.Close())

	h2, _ := arc.Insert(Handle{}, "b.dat", 2, FileTypeGeneric, AttrDefault)
	sb, _ := arc.Open(h2, false)
	_, _ = sb.Write([]byte("BB"))
	require.NoError(t, sb.Close())

	require.NoError(t, arc.Resize(h1, 4, 4))
	sa2, err := arc.Open(h1, false)
	require.NoError(t, err)
	_, err = sa2.Write([]byte("AAAA"))
	require.NoError(t, err)
	require.NoError(t, sa2.Close())

	require.NoError(t, arc.Flush())
	require.Equal(t, "AAAABB", string(back.buf))

	files := arc.Files()
	require.Equal(t, int64(4), files[0].Offset+files[0].StoredSize)
	require.Equal(t, int64(4), files[1].Offset)
}

func TestMovePreservesDataAndIdentity(t *testing.T) {
	arc, back := newTestArchive(t, nil)

	h1, _ := arc.Insert(Handle{}, "a.dat", 2, FileTypeGeneric, AttrDefault)
	sa, _ := arc.Open(h1, false)
	_, _ = sa.Write([]byte("AA"))
	require.NoError(t, sa.Close())

	h2, _ := arc.Insert(Handle{}, "b.dat", 2, FileTypeGeneric, AttrDefault)
	sb, _ := arc.Open(h2, false)
	_, _ = sb.Write([]byte("BB"))
	require.NoError(t, sb.Close())

	require.NoError(t, arc.Move(h1, h2))
	require.True(t, h2.Valid())
	require.NoError(t, arc.Flush())
	require.Equal(t, "BBAA", string(back.buf))

	files := arc.Files()
	require.Equal(t, "b.dat", files[0].Name)
	require.Equal(t, "a.dat", files[1].Name)
}

func TestShiftFilesZeroLengthTieBreakUsesIndexOrder(t *testing.T) {
	arc, _ := newTestArchive(t, nil)

	a := &Entry{Index: 0, Offset: 100, Name: "a.dat", Valid: true}
	b := &Entry{Index: 1, Offset: 100, Name: "b.dat", Valid: true}
	c := &Entry{Index: 2, Offset: 100, Name: "c.dat", Valid: true}
	arc.Seed([]*Entry{a, b, c})

	arc.ShiftFiles(b, 100, 0, 10)

	// a sorts before the skip entry (b) in index order and shares its
	// offset: entryInRange excludes it.
	require.Equal(t, 0, a.Index)
	// b is the skip entry itself: never shifted.
	require.Equal(t, 1, b.Index)
	// c sorts after the skip entry despite sharing the same offset: it must
	// still shift. A blanket deltaOffset==0 gate would wrongly leave every
	// same-offset zero-length entry untouched, including this one.
	require.Equal(t, 12, c.Index)
}

func TestMoveRejectsFilterChange(t *testing.T) {
	arc, _ := newTestArchive(t, nil)

	h1, _ := arc.Insert(Handle{}, "a.dat", 2, FileTypeGeneric, AttrDefault)
	sa, _ := arc.Open(h1, false)
	_, _ = sa.Write([]byte("AA"))
	require.NoError(t, sa.Close())
	h1.entry.Filter = "xor-blood"
	h1.entry.RealSize = 4

	h2, _ := arc.Insert(Handle{}, "b.dat", 2, FileTypeGeneric, AttrDefault)
	sb, _ := arc.Open(h2, false)
	_, _ = sb.Write([]byte("BB"))
	require.NoError(t, sb.Close())

	// flatHooks never assigns a filter to a freshly inserted entry, so
	// moving a filtered entry anywhere must be rejected rather than
	// silently dropping its filter.
	err := arc.Move(h2, h1)
	var notSupported *NotSupportedError
	require.ErrorAs(t, err, &notSupported)

	require.True(t, h1.Valid())
	require.True(t, h2.Valid())
	require.Equal(t, "xor-blood", h1.entry.Filter)
	require.Equal(t, int64(4), h1.entry.RealSize)
	files := arc.Files()
	require.Len(t, files, 2)
	require.Equal(t, "a.dat", files[0].Name)
	require.Equal(t, "b.dat", files[1].Name)
}

func TestOpenRejectsSecondWritableView(t *testing.T) {
	arc, _ := newTestArchive(t, nil)
	h, _ := arc.Insert(Handle{}, "a.dat", 2, FileTypeGeneric, AttrDefault)

	first, err := arc.Open(h, false)
	require.NoError(t, err)
	defer first.Close()

	_, err = arc.Open(h, false)
	require.ErrorIs(t, err, ErrAlreadyOpenForWrite)
}

func TestInsertRejectsUnsupportedAttrs(t *testing.T) {
	arc, _ := newTestArchive(t, nil)
	_, err := arc.Insert(Handle{}, "a.dat", 2, FileTypeGeneric, AttrEncrypted)
	var notSupported *NotSupportedError
	require.ErrorAs(t, err, &notSupported)
}
