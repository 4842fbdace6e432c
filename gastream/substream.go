// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gastream

import "io"

// SubStream is a bounded, relocatable view (parent, offset, length) over a
// Stream. It presents as a standalone read/write stream; writes beyond
// its length fail rather than extend it. The Archive holds these weakly
// and calls Relocate/Resize when a shift or resize moves the underlying
// window.
type SubStream struct {
	parent *Stream
	offset int64
	length int64
	pos    int64
}

// NewSubStream returns a view over parent's [offset, offset+length) range.
func NewSubStream(parent *Stream, offset, length int64) *SubStream {
	return &SubStream{parent: parent, offset: offset, length: length}
}

// Relocate shifts the view's offset by delta without touching any bytes.
func (s *SubStream) Relocate(delta int64) { s.offset += delta }

// Resize changes the view's logical length.
func (s *SubStream) Resize(n int64) { s.length = n }

// Offset returns the view's current offset into the parent stream.
func (s *SubStream) Offset() int64 { return s.offset }

// Len returns the view's current length.
func (s *SubStream) Len() int64 { return s.length }

// Seek implements io.Seeker over the bounded view.
func (s *SubStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.length + offset
	default:
		return 0, ErrOutOfBounds
	}
	if target < 0 || target > s.length {
		return 0, ErrOutOfBounds
	}
	s.pos = target
	return s.pos, nil
}

// Read implements io.Reader, bounded to the view's window.
func (s *SubStream) Read(p []byte) (int, error) {
	if s.pos >= s.length {
		return 0, io.EOF
	}
	if max := s.length - s.pos; int64(len(p)) > max {
		p = p[:max]
	}
	if _, err := s.parent.Seek(s.offset+s.pos, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := s.parent.Read(p)
	s.pos += int64(n)
	return n, err
}

// Write implements io.Writer. Writes that would extend past the view's
// length are rejected rather than growing the window; callers must Resize
// first (the engine does this as part of Archive.Resize).
func (s *SubStream) Write(p []byte) (int, error) {
	if s.pos+int64(len(p)) > s.length {
		return 0, ErrOutOfBounds
	}
	if _, err := s.parent.Seek(s.offset+s.pos, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := s.parent.Write(p)
	s.pos += int64(n)
	return n, err
}
