// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gafilter

import (
	"bytes"
	"io"
)

// xorBlood is the Monolith Blood RFF v3.1 FAT/file obfuscation: every
// byte is XORed with a single key byte derived from the entry's FAT
// offset low byte. The transform is its own inverse.
type xorBlood struct{}

func (xorBlood) Name() string { return "xor-blood" }

func (xorBlood) Decode(r io.Reader, params Params) (io.Reader, error) {
	key, _ := params["key"].(byte)
	return &xorReader{r: r, key: key}, nil
}

func (c xorBlood) Encode(r io.Reader, params Params, onSizeChange SizeChangeFunc) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if onSizeChange != nil {
		if err := onSizeChange(int64(len(data))); err != nil {
			return nil, err
		}
	}
	return c.Decode(bytes.NewReader(data), params)
}

type xorReader struct {
	r   io.Reader
	key byte
}

func (x *xorReader) Read(p []byte) (int, error) {
	n, err := x.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] ^= x.key
	}
	return n, err
}

func init() { Register(xorBlood{}) }
