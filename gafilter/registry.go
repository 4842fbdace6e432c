// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

// Package gafilter is the named filter registry the FAT engine dispatches
// to when a caller opens an entry with useFilter set. A filter is a thin,
// invertible byte transform (compression or encryption); it knows nothing
// about archives or FAT entries.
package gafilter

import (
	"fmt"
	"io"
	"sync"
)

// SizeChangeFunc is called by Encode when the encoded (stored) length is
// known, so the engine can resize the entry's stored region accordingly.
type SizeChangeFunc func(storedSize int64) error

// Params carries format-specific keys a codec needs, e.g. the XOR seed
// byte for Blood RFF.
type Params map[string]any

// Codec is a named, direction-polymorphic byte transform.
type Codec interface {
	Name() string
	// Decode wraps r (stored bytes) and yields real (decoded) bytes.
	Decode(r io.Reader, params Params) (io.Reader, error)
	// Encode wraps r (real bytes) and yields stored (encoded) bytes,
	// invoking onSizeChange once the final stored length is known.
	Encode(r io.Reader, params Params, onSizeChange SizeChangeFunc) (io.Reader, error)
}

var (
	mu       sync.Mutex
	registry = map[string]Codec{}
)

// Register adds a codec under its own Name(). Re-registering the same
// name replaces the previous codec.
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()
	registry[c.Name()] = c
}

// Lookup returns the codec registered under name, if any.
func Lookup(name string) (Codec, bool) {
	mu.Lock()
	defer mu.Unlock()
	c, ok := registry[name]
	return c, ok
}

// ErrUnknownFilter is returned by Decode/Encode helpers for an
// unregistered filter name.
var ErrUnknownFilter = fmt.Errorf("gafilter: unknown filter")

// DecodeNamed looks up name and decodes r through it.
func DecodeNamed(name string, r io.Reader, params Params) (io.Reader, error) {
	c, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	return c.Decode(r, params)
}

// EncodeNamed looks up name and encodes r through it.
func EncodeNamed(name string, r io.Reader, params Params, onSizeChange SizeChangeFunc) (io.Reader, error) {
	c, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	return c.Encode(r, params, onSizeChange)
}
