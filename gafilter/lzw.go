// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gafilter

import "compress/lzw"
import "io"

// lzwCodec adapts the stdlib LZW implementation to the two DOS-era LZW
// filters this library needs. No ecosystem package models either format's
// exact variant (packed code widths, LSB-first bit order, 9-bit initial
// code size growing as the dictionary fills); both formats use the same
// GIF-style parameters, so this wraps compress/lzw rather than
// hand-rolling a bit-level codec.
type lzwCodec struct {
	name     string
	order    lzw.Order
	litWidth int
}

func (c lzwCodec) Name() string { return c.name }

func (c lzwCodec) Decode(r io.Reader, _ Params) (io.Reader, error) {
	return lzw.NewReader(r, c.order, c.litWidth), nil
}

func (c lzwCodec) Encode(r io.Reader, _ Params, onSizeChange SizeChangeFunc) (io.Reader, error) {
	pr, pw := io.Pipe()
	counted := &countingWriter{w: pw}
	w := lzw.NewWriter(counted, c.order, c.litWidth)

	go func() {
		_, copyErr := io.Copy(w, r)
		closeErr := w.Close()
		err := copyErr
		if err == nil {
			err = closeErr
		}
		if err == nil && onSizeChange != nil {
			err = onSizeChange(counted.n)
		}
		pw.CloseWithError(err)
	}()

	return pr, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func init() {
	Register(lzwCodec{name: "lzw-bash", order: lzw.LSB, litWidth: 8})
	Register(lzwCodec{name: "lzw-epfs", order: lzw.LSB, litWidth: 8})
}
