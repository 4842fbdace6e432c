// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import (
	"bytes"
	"io"

	"github.com/camoto-go/gamearchive/gafilter"
	"github.com/camoto-go/gamearchive/gastream"
)

// EntryStream is what Archive.Open returns: a stream over one entry's
// data region, transparently decoding through the entry's filter on read
// and re-encoding on Close when the entry was opened with a filter and
// written to.
type EntryStream struct {
	arc        *Archive
	entry      *Entry
	sub        *gastream.SubStream
	filterName string

	decoded  io.Reader
	writeBuf *bytes.Buffer
	closed   bool
}

func (es *EntryStream) filterParams() gafilter.Params {
	return gafilter.Params{"key": byte(es.entry.Offset)}
}

// Read decodes through the entry's filter, if any, else reads raw bytes.
func (es *EntryStream) Read(p []byte) (int, error) {
	if es.filterName != "" {
		if es.decoded == nil {
			r, err := gafilter.DecodeNamed(es.filterName, es.sub, es.filterParams())
			if err != nil {
				return 0, err
			}
			es.decoded = r
		}
		return es.decoded.Read(p)
	}
	return es.sub.Read(p)
}

// Write buffers real (decoded) bytes when a filter is active, or writes
// through directly otherwise. Filtered writes are only committed on
// Close, once the encoded length is known.
func (es *EntryStream) Write(p []byte) (int, error) {
	if es.filterName != "" {
		if es.writeBuf == nil {
			es.writeBuf = &bytes.Buffer{}
		}
		return es.writeBuf.Write(p)
	}
	return es.sub.Write(p)
}

// Seek is only supported for unfiltered streams; a filtered stream is
// forward-only because its stored length isn't known until encode runs.
func (es *EntryStream) Seek(offset int64, whence int) (int64, error) {
	if es.filterName != "" {
		return 0, &NotSupportedError{Msg: "filtered entry streams do not support seeking"}
	}
	return es.sub.Seek(offset, whence)
}

// Close releases the write guard the Archive placed on this entry and,
// for a filtered stream with buffered writes, runs the encode pass and
// resizes the entry's stored region to fit.
func (es *EntryStream) Close() error {
	if es.closed {
		return nil
	}
	es.closed = true
	defer es.arc.releaseWrite(es.entry)

	if es.filterName == "" || es.writeBuf == nil {
		return nil
	}

	realSize := int64(es.writeBuf.Len())
	encoded, err := gafilter.EncodeNamed(es.filterName, bytes.NewReader(es.writeBuf.Bytes()), es.filterParams(),
		func(storedSize int64) error {
			return es.arc.Resize(handleFor(es.entry), storedSize, realSize)
		})
	if err != nil {
		return err
	}
	out, err := io.ReadAll(encoded)
	if err != nil {
		return err
	}
	if _, err := es.sub.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = es.sub.Write(out)
	return err
}
