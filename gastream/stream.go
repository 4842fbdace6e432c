// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package gastream implements the segmented stream and sub-stream
// primitives the FAT engine builds on: a byte stream that defers
// insert/remove edits until Flush, and a bounded relocatable view over it.
package gastream

import (
	"errors"
	"io"
)

// ErrOutOfBounds is returned for seeks or writes outside the stream's
// current logical bounds.
var ErrOutOfBounds = errors.New("gastream: out of bounds")

// scratchSize is the buffer size used to move bytes during Flush.
const scratchSize = 64 * 1024

type segmentKind int

const (
	segUnderlying segmentKind = iota
	segBuffer
)

// segment is one piece of the stream's logical content: either a range of
// the underlying stream's current (pre-flush) bytes, or an in-memory
// buffer created by Insert.
type segment struct {
	kind      segmentKind
	srcOffset int64 // valid when kind == segUnderlying
	length    int64
	buf       []byte // valid when kind == segBuffer
}

// Stream is a byte stream presenting a logical size that may differ from
// its underlying stream's current size. Insert and Remove splice the
// logical content without touching the underlying bytes; Flush commits
// the pending edits in one pass.
type Stream struct {
	under    io.ReadWriteSeeker
	truncate func(int64) error
	segments []segment
	pos      int64
	size     int64
}

// New wraps under as a segmented stream. truncate is called during Flush
// to grow or shrink the underlying stream to its final size.
func New(under io.ReadWriteSeeker, truncate func(int64) error) (*Stream, error) {
	size, err := under.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := under.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	s := &Stream{under: under, truncate: truncate, size: size}
	if size > 0 {
		s.segments = append(s.segments, segment{kind: segUnderlying, srcOffset: 0, length: size})
	}
	return s, nil
}

// Size returns the stream's current logical length.
func (s *Stream) Size() int64 { return s.size }

// Seek implements io.Seeker over the logical stream.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return 0, errors.New("gastream: invalid whence")
	}
	if target < 0 || target > s.size {
		return 0, ErrOutOfBounds
	}
	s.pos = target
	return s.pos, nil
}

// Pos returns the current logical cursor position.
func (s *Stream) Pos() int64 { return s.pos }

// Read implements io.Reader over the logical stream, walking segments as
// needed and resolving each underlying-backed segment against the
// underlying stream's current (pre-flush) position.
func (s *Stream) Read(p []byte) (int, error) {
	if s.pos >= s.size {
		return 0, io.EOF
	}

	total := 0
	idx, segStart := s.locate(s.pos)
	for total < len(p) && idx < len(s.segments) {
		seg := s.segments[idx]
		within := s.pos - segStart
		avail := seg.length - within
		want := int64(len(p) - total)
		if want > avail {
			want = avail
		}

		switch seg.kind {
		case segBuffer:
			n := copy(p[total:int64(total)+want], seg.buf[within:within+want])
			total += n
		case segUnderlying:
			if _, err := s.under.Seek(seg.srcOffset+within, io.SeekStart); err != nil {
				return total, err
			}
			n, err := io.ReadFull(s.under, p[total:int64(total)+want])
			total += n
			if err != nil && err != io.ErrUnexpectedEOF {
				return total, err
			}
		}

		s.pos += want
		if want == avail {
			idx++
			segStart += seg.length
		}
	}

	return total, nil
}

// Write implements io.Writer over the logical stream. It overwrites bytes
// in place and never extends the stream; use Insert first to make room.
func (s *Stream) Write(p []byte) (int, error) {
	if s.pos+int64(len(p)) > s.size {
		return 0, ErrOutOfBounds
	}

	total := 0
	idx, segStart := s.locate(s.pos)
	for total < len(p) && idx < len(s.segments) {
		seg := &s.segments[idx]
		within := s.pos - segStart
		avail := seg.length - within
		want := int64(len(p) - total)
		if want > avail {
			want = avail
		}

		switch seg.kind {
		case segBuffer:
			copy(seg.buf[within:within+want], p[total:int64(total)+want])
		case segUnderlying:
			if _, err := s.under.Seek(seg.srcOffset+within, io.SeekStart); err != nil {
				return total, err
			}
			if _, err := s.under.Write(p[total : int64(total)+want]); err != nil {
				return total, err
			}
		}

		total += int(want)
		s.pos += want
		if want == avail {
			idx++
			segStart += seg.length
		}
	}

	return total, nil
}

// Insert splices n zero-initialized bytes at the current cursor. The
// cursor stays at the start of the new region.
func (s *Stream) Insert(n int64) error {
	if n <= 0 {
		return nil
	}

	idx, segStart := s.locate(s.pos)
	newSeg := segment{kind: segBuffer, length: n, buf: make([]byte, n)}

	if idx >= len(s.segments) {
		s.segments = append(s.segments, newSeg)
	} else {
		offsetIntoSeg := s.pos - segStart
		s.segments = s.splitAndInsert(idx, offsetIntoSeg, newSeg)
	}

	s.size += n
	return nil
}

// Remove splices out n logical bytes starting at the current cursor.
func (s *Stream) Remove(n int64) error {
	if n <= 0 {
		return nil
	}
	if s.pos+n > s.size {
		return ErrOutOfBounds
	}

	remaining := n
	idx, segStart := s.locate(s.pos)
	for remaining > 0 && idx < len(s.segments) {
		seg := &s.segments[idx]
		within := s.pos - segStart
		avail := seg.length - within

		cut := remaining
		if cut > avail {
			cut = avail
		}

		switch seg.kind {
		case segBuffer:
			seg.buf = append(seg.buf[:within], seg.buf[within+cut:]...)
			seg.length -= cut
		case segUnderlying:
			// left part [0,within), right part [within+cut,length) of the
			// same underlying range; shrink in place by rewriting length
			// and, if cut from the middle, splitting into two segments.
			if within == 0 {
				seg.srcOffset += cut
				seg.length -= cut
			} else if within+cut == seg.length {
				seg.length -= cut
			} else {
				left := segment{kind: segUnderlying, srcOffset: seg.srcOffset, length: within}
				right := segment{kind: segUnderlying, srcOffset: seg.srcOffset + within + cut, length: seg.length - within - cut}
				s.segments = append(s.segments[:idx], append([]segment{left, right}, s.segments[idx+1:]...)...)
				seg = &s.segments[idx] // left
				_ = seg
			}
		}

		remaining -= cut
		s.size -= cut

		// re-resolve idx/segStart since the slice may have mutated.
		idx, segStart = s.locate(s.pos)
	}

	s.compact()
	return nil
}

// locate returns the segment index containing logical position pos and
// that segment's logical start offset.
func (s *Stream) locate(pos int64) (int, int64) {
	var start int64
	for i, seg := range s.segments {
		if pos < start+seg.length || (pos == start+seg.length && i == len(s.segments)-1) {
			if pos == start+seg.length {
				return i + 1, start + seg.length
			}
			return i, start
		}
		start += seg.length
	}
	return len(s.segments), start
}

// splitAndInsert splits segments[idx] at offsetIntoSeg and places ins
// between the two halves, returning the resulting segment slice.
func (s *Stream) splitAndInsert(idx int, offsetIntoSeg int64, ins segment) []segment {
	seg := s.segments[idx]

	if offsetIntoSeg == 0 {
		out := make([]segment, 0, len(s.segments)+1)
		out = append(out, s.segments[:idx]...)
		out = append(out, ins)
		out = append(out, s.segments[idx:]...)
		return out
	}

	var left, right segment
	switch seg.kind {
	case segBuffer:
		left = segment{kind: segBuffer, length: offsetIntoSeg, buf: seg.buf[:offsetIntoSeg]}
		right = segment{kind: segBuffer, length: seg.length - offsetIntoSeg, buf: seg.buf[offsetIntoSeg:]}
	case segUnderlying:
		left = segment{kind: segUnderlying, srcOffset: seg.srcOffset, length: offsetIntoSeg}
		right = segment{kind: segUnderlying, srcOffset: seg.srcOffset + offsetIntoSeg, length: seg.length - offsetIntoSeg}
	}

	out := make([]segment, 0, len(s.segments)+2)
	out = append(out, s.segments[:idx]...)
	out = append(out, left, ins, right)
	out = append(out, s.segments[idx+1:]...)
	return out
}

// compact merges adjacent zero-length or contiguous-underlying segments
// to keep the segment list from growing without bound across many edits.
func (s *Stream) compact() {
	out := s.segments[:0]
	for _, seg := range s.segments {
		if seg.length == 0 {
			continue
		}
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.kind == segUnderlying && seg.kind == segUnderlying && prev.srcOffset+prev.length == seg.srcOffset {
				prev.length += seg.length
				continue
			}
		}
		out = append(out, seg)
	}
	s.segments = out
}

// flushOrder returns segment indices in an order safe to move in place.
// Buffer segments have no source bytes in the underlying stream, but
// their destinations can cover any underlying segment's unread source, so
// they are all written last. Underlying segments keep their relative
// order in both layouts, so each is ordered only against the previous
// underlying segment i and the next one j, by two local rules - process
// j before i whenever j doesn't move left of its own source (it would
// otherwise be overwritten by i's write), and process i before j
// whenever i moves left of its own source (j would otherwise overwrite
// i's still-unread source). At most one rule applies to each pair, so
// the resulting "process before" edges form a DAG and a topological sort
// always succeeds.
func (s *Stream) flushOrder(newOffset []int64) []int {
	n := len(s.segments)
	children := make([][]int, n)
	indeg := make([]int, n)
	i := -1 // previous underlying segment
	for j := 0; j < n; j++ {
		if s.segments[j].kind != segUnderlying {
			continue
		}
		switch {
		case i < 0:
		case newOffset[j] >= s.segments[j].srcOffset:
			children[j] = append(children[j], i)
			indeg[i]++
		case newOffset[i] < s.segments[i].srcOffset:
			children[i] = append(children[i], j)
			indeg[j]++
		}
		i = j
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 && s.segments[i].kind == segUnderlying {
			queue = append(queue, i)
		}
	}
	order := make([]int, 0, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, c := range children[i] {
			indeg[c]--
			if indeg[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	for i := 0; i < n; i++ {
		if s.segments[i].kind == segBuffer {
			order = append(order, i)
		}
	}
	if len(order) != n {
		// Defensive fallback; the adjacency structure above never actually
		// produces a cycle, but don't silently drop segments if it did.
		seen := make([]bool, n)
		for _, i := range order {
			seen[i] = true
		}
		for i := 0; i < n; i++ {
			if !seen[i] {
				order = append(order, i)
			}
		}
	}
	return order
}

// Flush realizes all pending edits by moving bytes in the underlying
// stream in place, then truncating to the final size. Segments are
// processed in flushOrder, not one global direction: a single net
// size-change direction is wrong whenever one segment's own move
// direction disagrees with the net trend (e.g. an insert followed by a
// larger, later removal nets smaller but still contains a segment that
// shifted right).
func (s *Stream) Flush() error {
	finalSize := s.size

	// newOffset[i] is the destination logical offset of segment i.
	newOffset := make([]int64, len(s.segments))
	var acc int64
	for i, seg := range s.segments {
		newOffset[i] = acc
		acc += seg.length
	}

	curSize, err := s.under.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	if finalSize > curSize {
		if err := s.truncate(finalSize); err != nil {
			return err
		}
	}

	buf := make([]byte, scratchSize)

	move := func(i int) error {
		seg := s.segments[i]
		if seg.kind == segBuffer {
			if _, err := s.under.Seek(newOffset[i], io.SeekStart); err != nil {
				return err
			}
			_, err := s.under.Write(seg.buf)
			return err
		}
		if seg.srcOffset == newOffset[i] {
			return nil
		}
		remaining := seg.length
		var readAt, writeAt int64
		if newOffset[i] < seg.srcOffset {
			readAt, writeAt = seg.srcOffset, newOffset[i]
			for remaining > 0 {
				chunk := int64(len(buf))
				if chunk > remaining {
					chunk = remaining
				}
				if _, err := s.under.Seek(readAt, io.SeekStart); err != nil {
					return err
				}
				if _, err := io.ReadFull(s.under, buf[:chunk]); err != nil {
					return err
				}
				if _, err := s.under.Seek(writeAt, io.SeekStart); err != nil {
					return err
				}
				if _, err := s.under.Write(buf[:chunk]); err != nil {
					return err
				}
				readAt += chunk
				writeAt += chunk
				remaining -= chunk
			}
		} else {
			for remaining > 0 {
				chunk := int64(len(buf))
				if chunk > remaining {
					chunk = remaining
				}
				readAt = seg.srcOffset + remaining - chunk
				writeAt = newOffset[i] + remaining - chunk
				if _, err := s.under.Seek(readAt, io.SeekStart); err != nil {
					return err
				}
				if _, err := io.ReadFull(s.under, buf[:chunk]); err != nil {
					return err
				}
				if _, err := s.under.Seek(writeAt, io.SeekStart); err != nil {
					return err
				}
				if _, err := s.under.Write(buf[:chunk]); err != nil {
					return err
				}
				remaining -= chunk
			}
		}
		return nil
	}

	for _, i := range s.flushOrder(newOffset) {
		if err := move(i); err != nil {
			return err
		}
	}

	if finalSize < curSize {
		if err := s.truncate(finalSize); err != nil {
			return err
		}
	}

	if finalSize > 0 {
		s.segments = []segment{{kind: segUnderlying, srcOffset: 0, length: finalSize}}
	} else {
		s.segments = nil
	}
	return nil
}
